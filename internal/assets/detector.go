package assets

import (
	"fmt"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"
)

// ImageInfo describes an uploaded cover or illustration asset.
type ImageInfo struct {
	MIMEType  string
	Extension string
	Supported bool
}

var supported = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/webp": true,
	"image/gif":  true,
}

// DetectImage inspects the upload's magic bytes, not its filename. Returns an
// error when the data is not a supported image type; covers and
// illustrations render in the book viewer, so anything else is rejected at
// the door.
func DetectImage(data []byte) (*ImageInfo, error) {
	mtype := mimetype.Detect(data)
	info := &ImageInfo{
		MIMEType:  mtype.String(),
		Extension: mtype.Extension(),
		Supported: supported[mtype.String()],
	}
	log.Debug().Str("mime", info.MIMEType).Str("ext", info.Extension).Msg("detected asset type")
	if !info.Supported {
		return info, fmt.Errorf("unsupported asset type %s", info.MIMEType)
	}
	return info, nil
}
