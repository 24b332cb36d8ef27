package vncbridge

import (
	"bytes"
	"context"
	"os"
	"time"

	"github.com/Ganzzi/vnc-agent-bridge/internal/imagecodec"
	"github.com/Ganzzi/vnc-agent-bridge/internal/rfb"
)

// refreshTimeout bounds how long Capture/CaptureRegion wait for the
// server to answer a FramebufferUpdateRequest before giving up.
const refreshTimeout = 5 * time.Second

// ScreenshotService captures the current framebuffer as an encoded
// image. Every capture first requests a full (non-incremental) update
// so the bytes returned reflect the server's current screen rather than
// whatever the last passively-received update happened to contain.
type ScreenshotService struct {
	engine *rfb.Engine
}

func newScreenshotService(engine *rfb.Engine) *ScreenshotService {
	return &ScreenshotService{engine: engine}
}

// Capture refreshes the full framebuffer and encodes it in format.
func (s *ScreenshotService) Capture(ctx context.Context, format imagecodec.Format) ([]byte, error) {
	const op = "screenshot-capture"

	rgba, w, h, err := s.refresh(ctx, op)
	if err != nil {
		return nil, err
	}
	return encodeRGBA(op, format, rgba, w, h)
}

// CaptureRegion refreshes the full framebuffer, then encodes only the
// requested sub-rectangle.
func (s *ScreenshotService) CaptureRegion(ctx context.Context, format imagecodec.Format, x, y, w, h int) ([]byte, error) {
	const op = "screenshot-capture-region"

	if err := validatePoint(op, x, y); err != nil {
		return nil, err
	}
	if err := validatePoint(op, w, h); err != nil {
		return nil, err
	}

	if _, _, _, err := s.refresh(ctx, op); err != nil {
		return nil, err
	}

	region, err := s.engine.Framebuffer().GetRegion(mustUint16(x), mustUint16(y), mustUint16(w), mustUint16(h))
	if err != nil {
		return nil, wrapEngineErr(op, err)
	}
	return encodeRGBA(op, format, region, w, h)
}

// Save captures the full framebuffer and writes it to path.
func (s *ScreenshotService) Save(ctx context.Context, path string, format imagecodec.Format) error {
	data, err := s.Capture(ctx, format)
	if err != nil {
		return err
	}
	return writeFile("screenshot-save", path, data)
}

// SaveRegion captures a sub-rectangle of the framebuffer and writes it
// to path.
func (s *ScreenshotService) SaveRegion(ctx context.Context, path string, format imagecodec.Format, x, y, w, h int) error {
	data, err := s.CaptureRegion(ctx, format, x, y, w, h)
	if err != nil {
		return err
	}
	return writeFile("screenshot-save-region", path, data)
}

// refresh asks the server for a full framebuffer update and drains
// messages until that update arrives, returning the resulting raster
// plus its dimensions.
func (s *ScreenshotService) refresh(ctx context.Context, op string) ([]byte, int, int, error) {
	waitCtx, cancel := context.WithTimeout(ctx, refreshTimeout)
	defer cancel()

	s.engine.Lock()
	defer s.engine.Unlock()

	w, h := s.engine.Framebuffer().Dimensions()
	if err := s.engine.SendFramebufferUpdateRequest(ctx, false, 0, 0, w, h); err != nil {
		return nil, 0, 0, wrapEngineErr(op, err)
	}

	for {
		result, err := s.engine.DispatchOne(waitCtx)
		if err != nil {
			return nil, 0, 0, wrapEngineErr(op, err)
		}
		if result.Kind == rfb.DispatchFramebufferUpdate {
			break
		}
	}

	return s.engine.Framebuffer().GetFull(), int(w), int(h), nil
}

func encodeRGBA(op string, format imagecodec.Format, rgba []byte, w, h int) ([]byte, error) {
	var buf bytes.Buffer
	if err := imagecodec.Encode(&buf, format, rgba, w, h); err != nil {
		return nil, newInputError(op, err)
	}
	return buf.Bytes(), nil
}

func writeFile(op, path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return newInputError(op, err)
	}
	return nil
}
