package classindex

import (
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	cerrors "github.com/Aman-CERP/classcache/internal/errors"
)

// decodeText turns raw file bytes into text. A UTF-8 or UTF-16 byte order
// mark selects the encoding and is stripped; otherwise UTF-8 is assumed and
// invalid sequences become U+FFFD.
func decodeText(data []byte) (string, error) {
	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	out, _, err := transform.Bytes(dec, data)
	if err != nil {
		return "", cerrors.New(cerrors.ErrCodeDecodeFailed, "cannot decode document text", err)
	}
	return string(out), nil
}
