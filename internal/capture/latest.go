package capture

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// Latest holds the most recent camera frame for preview consumers (MJPEG
// stream, overlay background). The detection loop is the only publisher.
type Latest struct {
	mu     sync.Mutex
	jpeg   []byte
	img    image.Image
	seq    uint64
	at     time.Time
	notify chan struct{}
}

// NewLatest creates an empty frame holder.
func NewLatest() *Latest {
	return &Latest{notify: make(chan struct{})}
}

// Publish encodes mat and makes it the current frame. mat is not retained.
func (l *Latest) Publish(mat *gocv.Mat) error {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *mat)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	data := append([]byte(nil), buf.GetBytes()...)
	buf.Close()

	img, err := mat.ToImage()
	if err != nil {
		return fmt.Errorf("convert frame: %w", err)
	}

	l.publish(data, img)
	return nil
}

func (l *Latest) publish(jpeg []byte, img image.Image) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.jpeg = jpeg
	l.img = img
	l.seq++
	l.at = time.Now()
	close(l.notify)
	l.notify = make(chan struct{})
}

// JPEG returns the current encoded frame and its sequence number. ok is
// false until the first frame is published.
func (l *Latest) JPEG() (data []byte, seq uint64, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.jpeg, l.seq, l.seq > 0
}

// Image returns the current decoded frame, or nil.
func (l *Latest) Image() image.Image {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.img
}

// Wait blocks until a frame newer than after is published and returns it.
func (l *Latest) Wait(ctx context.Context, after uint64) ([]byte, uint64, error) {
	for {
		l.mu.Lock()
		if l.seq > after {
			data, seq := l.jpeg, l.seq
			l.mu.Unlock()
			return data, seq, nil
		}
		ch := l.notify
		l.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, after, ctx.Err()
		case <-ch:
		}
	}
}
