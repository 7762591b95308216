package clientmanager

import (
	"encoding/base64"

	"github.com/pkg/errors"
	qrcode "github.com/skip2/go-qrcode"
)

const qrImageSize = 256

// encodeQRDataURL renders a raw credential challenge as a PNG data URL the
// front end can drop straight into an <img> tag.
func encodeQRDataURL(challenge string) (string, error) {
	png, err := qrcode.Encode(challenge, qrcode.Medium, qrImageSize)
	if err != nil {
		return "", errors.Wrap(err, "[encodeQRDataURL] encoding challenge")
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
