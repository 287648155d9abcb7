package s3store

import (
	"mime"
	"path"
)

func guessContentType(name string) string {
	ext := path.Ext(name)
	if ext == "" {
		return ""
	}
	return mime.TypeByExtension(ext)
}
