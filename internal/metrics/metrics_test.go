package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/and161185/goph-gallery/internal/gallery"
	"github.com/and161185/goph-gallery/internal/model"
	"github.com/and161185/goph-gallery/internal/upload"
)

func TestUploadTracker(t *testing.T) {
	m := New()
	now := time.Unix(0, 0)
	hook := m.UploadTracker(func() time.Time { return now })

	hook(upload.Transition{Token: "a", From: upload.Idle, To: upload.Validating})
	now = now.Add(time.Second)
	hook(upload.Transition{Token: "a", From: upload.InsertingTags, To: upload.Complete})

	hook(upload.Transition{Token: "b", From: upload.Idle, To: upload.Validating})
	hook(upload.Transition{Token: "b", From: upload.UploadingBlob, To: upload.Failed})

	require.Equal(t, 1.0, testutil.ToFloat64(m.uploads.WithLabelValues("complete")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.uploads.WithLabelValues("failed_uploading_blob")))

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	var samples uint64
	for _, f := range families {
		if f.GetName() == "gallery_upload_duration_seconds" {
			samples = f.GetMetric()[0].GetHistogram().GetSampleCount()
		}
	}
	require.Equal(t, uint64(2), samples)
}

func TestObserveEventAndFeed(t *testing.T) {
	m := New()
	m.ObserveEvent(model.EventInsert, gallery.Applied)
	m.ObserveEvent(model.EventInsert, gallery.Applied)
	m.ObserveEvent(model.EventTag, gallery.Ignored)
	m.FeedState(true)

	require.Equal(t, 2.0, testutil.ToFloat64(m.events.WithLabelValues("insert", "applied")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.feedUp))
	m.FeedState(false)
	require.Equal(t, 0.0, testutil.ToFloat64(m.feedUp))
}

func TestHandler(t *testing.T) {
	m := New()
	m.FeedState(true)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "gallery_feed_up 1")
}
