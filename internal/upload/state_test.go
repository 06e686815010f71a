package upload

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/and161185/goph-gallery/internal/errs"
	"github.com/and161185/goph-gallery/internal/model"
)

func TestCanMove(t *testing.T) {
	t.Parallel()

	require.True(t, CanMove(Idle, Validating))
	require.True(t, CanMove(InsertingTags, Complete))
	require.True(t, CanMove(UploadingBlob, Failed))
	require.False(t, CanMove(Validating, InsertingRecord))
	require.False(t, CanMove(Complete, Failed))
	require.False(t, CanMove(Failed, Validating))
}

func TestState_String(t *testing.T) {
	t.Parallel()

	require.Equal(t, "resolving_url", ResolvingURL.String())
	require.Equal(t, "unknown", State(42).String())
	require.True(t, Failed.Terminal())
	require.False(t, InsertingTags.Terminal())
}

func TestValidate_SniffsVideo(t *testing.T) {
	t.Parallel()

	webm := []byte("\x1A\x45\xDF\xA3\x00\x00\x00\x00")
	in, err := Validate(model.Upload{FileName: "clip.webm", Body: webm, Tags: "fun"})
	require.NoError(t, err)
	require.Equal(t, model.MediaVideo, in.MediaType)
	require.Equal(t, "video/webm", in.ContentType)
}

func TestValidate_DeclaredTypeWithParams(t *testing.T) {
	t.Parallel()

	in, err := Validate(model.Upload{FileName: "a.jpg", ContentType: "image/jpeg; charset=binary", Body: []byte{1}, Tags: "x"})
	require.NoError(t, err)
	require.Equal(t, "image/jpeg", in.ContentType)
	require.Equal(t, model.MediaImage, in.MediaType)
}

func TestValidate_OrderOfChecks(t *testing.T) {
	t.Parallel()

	_, err := Validate(model.Upload{Tags: ""})
	require.ErrorIs(t, err, errs.ErrValidation)
	require.Contains(t, err.Error(), "file")

	_, err = Validate(model.Upload{FileName: "a.png", Body: pngHeader})
	require.ErrorContains(t, err, "tag")
}

func TestKey(t *testing.T) {
	t.Parallel()

	at := time.UnixMilli(1234)
	k1 := Key(at, `C:\photos\my cat?.png`, []byte("a"))
	k2 := Key(at, `my cat?.png`, []byte("b"))
	require.Regexp(t, `^1234_[0-9a-f]{16}_my_cat_\.png$`, k1)
	require.NotEqual(t, k1, k2)
	require.Regexp(t, `_upload$`, Key(at, "..", nil))
}
