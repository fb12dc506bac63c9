package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/sambooru/sambooru-server/internal/errors"
)

func TestStage_Terminal(t *testing.T) {
	assert.True(t, StageCommitted.Terminal())
	assert.True(t, StageRejected.Terminal())
	assert.True(t, StageFailed.Terminal())

	for _, stage := range []Stage{
		StageReceived, StageHashing, StageDedupCheck, StageProcessing,
		StageAutoTagging, StageTagResolution, StagePersisting,
	} {
		assert.False(t, stage.Terminal(), string(stage))
	}
}

func TestMergeTagNames(t *testing.T) {
	tests := []struct {
		name string
		user []string
		auto []string
		want []string
	}{
		{
			name: "user tags come first",
			user: []string{"cat", "indoor"},
			auto: []string{"animal", "fur"},
			want: []string{"cat", "indoor", "animal", "fur"},
		},
		{
			name: "auto duplicates dropped",
			user: []string{"cat"},
			auto: []string{"cat", "animal"},
			want: []string{"cat", "animal"},
		},
		{
			name: "no auto tags",
			user: []string{"cat"},
			auto: nil,
			want: []string{"cat"},
		},
		{
			name: "duplicate within auto",
			user: nil,
			auto: []string{"sky", "sky", "cloud"},
			want: []string{"sky", "cloud"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mergeTagNames(tt.user, tt.auto))
		})
	}
}

func TestTerminalEvent_DuplicateIsRejection(t *testing.T) {
	event := terminalEvent(apperrors.DuplicateContent("already uploaded"), "42")

	require.Equal(t, StageRejected, event.Stage)
	assert.Equal(t, string(apperrors.CodeDuplicateContent), event.Code)
	assert.Equal(t, "42", event.PostID)
	assert.Equal(t, "already uploaded", event.Error)
}

func TestTerminalEvent_UnsupportedMediaIsRejection(t *testing.T) {
	event := terminalEvent(apperrors.UnsupportedMedia("no bmp"), "")

	require.Equal(t, StageRejected, event.Stage)
	assert.Equal(t, string(apperrors.CodeUnsupportedMedia), event.Code)
}

func TestTerminalEvent_ProcessingIsFailure(t *testing.T) {
	event := terminalEvent(apperrors.Processing("ffmpeg blew up"), "")

	require.Equal(t, StageFailed, event.Stage)
	assert.Equal(t, string(apperrors.CodeProcessing), event.Code)
}

func TestTerminalEvent_UnknownErrorHidesDetails(t *testing.T) {
	event := terminalEvent(assert.AnError, "")

	require.Equal(t, StageFailed, event.Stage)
	assert.Equal(t, string(apperrors.CodeInternal), event.Code)
	assert.Equal(t, "internal error", event.Error)
}
