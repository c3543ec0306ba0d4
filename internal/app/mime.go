package app

import (
	"log"
	"mime"
)

func init() {
	ensureMimeType(".css", "text/css; charset=utf-8")
	ensureMimeType(".js", "text/javascript; charset=utf-8")
	ensureMimeType(".xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
}

// ensureMimeType registers typ for ext when the host mime tables lack it.
// Minimal container images often ship without /etc/mime.types.
func ensureMimeType(ext, typ string) {
	if mime.TypeByExtension(ext) != "" {
		return
	}
	if err := mime.AddExtensionType(ext, typ); err != nil {
		log.Printf("app: failed to register MIME type for %s: %v", ext, err)
	}
}
