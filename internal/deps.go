package internal

import (
	"bitwise74/drive-api/internal/service"

	"gorm.io/gorm"
)

type Deps struct {
	DB       *gorm.DB
	Uploader *service.Uploader
	Files    *service.FileService
}
