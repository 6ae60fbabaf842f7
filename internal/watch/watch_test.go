package watch

import (
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"

	"github.com/llehouerou/songbook/internal/library"
)

func TestRelevant(t *testing.T) {
	tests := []struct {
		name string
		ev   fsnotify.Event
		want bool
	}{
		{"abc write", fsnotify.Event{Name: "/music/song.abc", Op: fsnotify.Write}, true},
		{"abc create", fsnotify.Event{Name: "/music/song.abc", Op: fsnotify.Create}, true},
		{"abc remove", fsnotify.Event{Name: "/music/song.abc", Op: fsnotify.Remove}, true},
		{"abc uppercase ext", fsnotify.Event{Name: "/music/SONG.ABC", Op: fsnotify.Write}, true},
		{"abc chmod only", fsnotify.Event{Name: "/music/song.abc", Op: fsnotify.Chmod}, false},
		{"abc chmod and write", fsnotify.Event{Name: "/music/song.abc", Op: fsnotify.Chmod | fsnotify.Write}, true},
		{"txt write", fsnotify.Event{Name: "/music/notes.txt", Op: fsnotify.Write}, false},
		{"dir remove", fsnotify.Event{Name: "/music/subdir", Op: fsnotify.Remove}, true},
		{"dir rename", fsnotify.Event{Name: "/music/subdir", Op: fsnotify.Rename}, true},
		{"dir create", fsnotify.Event{Name: "/music/subdir", Op: fsnotify.Create}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, relevant(tt.ev))
		})
	}
}

func TestNewDefaultsDebounce(t *testing.T) {
	w := New(nil, library.ScanOptions{}, 0)
	assert.Equal(t, 500*time.Millisecond, w.interval)

	w = New(nil, library.ScanOptions{}, time.Second)
	assert.Equal(t, time.Second, w.interval)
}
