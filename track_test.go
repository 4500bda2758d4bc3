package moqt

import (
	"errors"
	"testing"
)

func TestTrackValidate(t *testing.T) {
	tests := []struct {
		name    string
		track   Track
		wantErr bool
	}{
		{"complete", Track{Namespace: "ns", Name: "a", AuthInfo: "secret"}, false},
		{"missing namespace", Track{Name: "a", AuthInfo: "secret"}, true},
		{"missing name", Track{Namespace: "ns", AuthInfo: "secret"}, true},
		{"missing authInfo", Track{Namespace: "ns", Name: "a"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.track.Validate()
			if tt.wantErr && !errors.Is(err, ErrConfig) {
				t.Errorf("Validate() error = %v, want wrapping ErrConfig", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Validate() error = %v, want nil", err)
			}
		})
	}
}

func TestTrackPackagingKind(t *testing.T) {
	if (Track{Kind: "data"}).PackagingKind() != KindData {
		t.Error("data track should package as RAW")
	}
	if (Track{Kind: "video"}).PackagingKind() != KindVideo {
		t.Error("video track should package as LOC/video")
	}
	if (Track{Kind: "audio"}).PackagingKind() != KindAudio {
		t.Error("audio track should package as LOC/audio")
	}
}
