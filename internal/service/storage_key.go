package service

import (
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
)

var folderPathReplacer = strings.NewReplacer(" ", "_", "/", "_")

// GenerateStorageKey builds the object key a file is stored under. Keys are
// namespaced by owner and, when folderPath is set, by a flattened version of
// the folder path. A fresh UUID keeps keys unique even for identical names.
//
// The folder isn't validated here. Callers that care must check it exists first
func GenerateStorageKey(ownerID, filename string, folderPath *string) string {
	ext := path.Ext(filename)
	base := strings.TrimSuffix(filename, ext)
	name := fmt.Sprintf("%s_%s%s", uuid.NewString(), base, ext)

	if folderPath != nil {
		segment := folderPathReplacer.Replace(strings.Trim(*folderPath, "/"))
		if segment != "" {
			return fmt.Sprintf("users/%s/%s/%s", ownerID, segment, name)
		}
	}

	return fmt.Sprintf("users/%s/%s", ownerID, name)
}
