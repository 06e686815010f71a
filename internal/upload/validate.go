package upload

import (
	"fmt"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/and161185/goph-gallery/internal/crypto"
	"github.com/and161185/goph-gallery/internal/errs"
	"github.com/and161185/goph-gallery/internal/model"
	"github.com/and161185/goph-gallery/internal/sanitize"
)

const maxKeyName = 100

// Validate turns a raw submission into an UploadIntent. It has no side effects.
func Validate(in model.Upload) (model.UploadIntent, error) {
	if strings.TrimSpace(in.FileName) == "" || len(in.Body) == 0 {
		return model.UploadIntent{}, fmt.Errorf("%w: please upload a file", errs.ErrValidation)
	}
	tags := sanitize.Tags(in.Tags)
	if len(tags) == 0 {
		return model.UploadIntent{}, fmt.Errorf("%w: please enter at least one tag", errs.ErrValidation)
	}
	ct := contentType(in.ContentType, in.Body)
	mt, ok := mediaType(ct)
	if !ok {
		return model.UploadIntent{}, fmt.Errorf("%w: please upload an image or video file (got %s)", errs.ErrValidation, ct)
	}

	return model.UploadIntent{
		FileName:    in.FileName,
		ContentType: ct,
		Body:        in.Body,
		Head:        sanitize.Head(in.Head),
		Title:       sanitize.Title(in.Title),
		Tags:        tags,
		MediaType:   mt,
	}, nil
}

// contentType trusts a declared media type and sniffs the body otherwise.
func contentType(declared string, body []byte) string {
	ct := strings.TrimSpace(declared)
	if ct == "" || ct == "application/octet-stream" {
		ct = http.DetectContentType(body)
	}
	if mt, _, err := mime.ParseMediaType(ct); err == nil {
		return mt
	}
	return strings.ToLower(ct)
}

func mediaType(ct string) (model.MediaType, bool) {
	switch {
	case strings.HasPrefix(ct, "image/"):
		return model.MediaImage, true
	case strings.HasPrefix(ct, "video/"):
		return model.MediaVideo, true
	default:
		return "", false
	}
}

// Key builds the blob key: upload time in unix millis, a short content digest and
// the original file name reduced to a safe alphabet.
func Key(now time.Time, fileName string, body []byte) string {
	return fmt.Sprintf("%d_%s_%s", now.UnixMilli(), crypto.ShortDigest(body), safeName(fileName))
}

func safeName(name string) string {
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
		if b.Len() >= maxKeyName {
			break
		}
	}
	out := strings.Trim(b.String(), ".")
	if out == "" {
		return "upload"
	}
	return out
}
