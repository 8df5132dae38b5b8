package loader

import (
	"bytes"
	"context"
	"errors"
	"hash/crc32"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tock-tools/go-tockbl/firmware"
	"github.com/tock-tools/go-tockbl/protocol"
	"github.com/tock-tools/go-tockbl/sim"
)

// newTestLoader wires a Loader to a simulated device over an in-memory pipe.
func newTestLoader(t *testing.T, opts ...Option) *Loader {
	t.Helper()

	host, dev := net.Pipe()
	t.Cleanup(func() {
		_ = host.Close()
		_ = dev.Close()
	})

	go func() {
		_ = sim.NewDevice().Serve(context.Background(), dev)
	}()

	opts = append([]Option{WithReadTimeout(2 * time.Second)}, opts...)
	return New(host, opts...)
}

func TestNewPanicsOnNilDevice(t *testing.T) {
	assert.Panics(t, func() { New(nil) })
}

func TestLoaderPing(t *testing.T) {
	ldr := newTestLoader(t)
	require.NoError(t, ldr.Ping(context.Background()))
}

func TestLoaderInfo(t *testing.T) {
	ldr := newTestLoader(t)

	info, err := ldr.Info(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("tockbl10"), info)
}

func TestLoaderWriteReadRoundTrip(t *testing.T) {
	ldr := newTestLoader(t)
	ctx := context.Background()

	page := make([]byte, protocol.IntPageSize)
	for i := range page {
		page[i] = byte(i * 7)
	}

	require.NoError(t, ldr.WritePage(ctx, 0x10000, page))

	got, err := ldr.ReadRange(ctx, 0x10000, protocol.IntPageSize)
	require.NoError(t, err)
	assert.Equal(t, page, got)

	crc, err := ldr.CrcInternalFlash(ctx, 0x10000, protocol.IntPageSize)
	require.NoError(t, err)
	assert.Equal(t, crc32.ChecksumIEEE(page), crc)
}

func TestLoaderExternalFlash(t *testing.T) {
	ldr := newTestLoader(t)
	ctx := context.Background()

	require.NoError(t, ldr.ExtFlashInit(ctx))

	exPage := bytes.Repeat([]byte{0xC3}, protocol.ExtPageSize)
	require.NoError(t, ldr.WriteExPage(ctx, 0x2000, exPage))

	got, err := ldr.ExReadRange(ctx, 0x2000, 32)
	require.NoError(t, err)
	assert.Equal(t, exPage[:32], got)

	crc, err := ldr.CrcExternalFlash(ctx, 0x2000, 32)
	require.NoError(t, err)
	assert.Equal(t, crc32.ChecksumIEEE(exPage[:32]), crc)

	require.NoError(t, ldr.EraseExPage(ctx, 0x2000))
	got, err = ldr.ExReadRange(ctx, 0x2000, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0xFF, 0xFF, 0xFF}, got)
}

func TestLoaderStatusError(t *testing.T) {
	ldr := newTestLoader(t)

	page := make([]byte, protocol.IntPageSize)
	err := ldr.WritePage(context.Background(), 0x10001, page)
	require.Error(t, err)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, "write page", statusErr.Operation)
	assert.IsType(t, protocol.BadAddressResponse{}, statusErr.Response)
}

func TestLoaderAttributes(t *testing.T) {
	ldr := newTestLoader(t)
	ctx := context.Background()

	require.NoError(t, ldr.SetAttribute(ctx, 3, "board", []byte("imix")))

	attr, err := ldr.GetAttribute(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "board", attr.Key)
	assert.Equal(t, []byte("imix"), attr.Value)

	err = ldr.SetAttribute(ctx, 0, "way-too-long-key", nil)
	require.Error(t, err)
}

func TestLoaderChangeBaud(t *testing.T) {
	ldr := newTestLoader(t)
	ctx := context.Background()

	require.NoError(t, ldr.ChangeBaud(ctx, protocol.BaudModeSet, 115200))
	require.NoError(t, ldr.ChangeBaud(ctx, protocol.BaudModeVerify, 115200))

	// Verifying a rate that was never proposed fails
	err := ldr.ChangeBaud(ctx, protocol.BaudModeVerify, 57600)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.IsType(t, protocol.ChangeBaudFailResponse{}, statusErr.Response)
}

func TestLoaderReset(t *testing.T) {
	ldr := newTestLoader(t)
	ctx := context.Background()

	require.NoError(t, ldr.Reset(ctx))

	// The device stays responsive after a reset
	require.NoError(t, ldr.Ping(ctx))
}

func TestLoaderFlashImage(t *testing.T) {
	data := make([]byte, 2*protocol.IntPageSize+100)
	for i := range data {
		data[i] = byte(i * 13)
	}
	img, err := firmware.FromBinary(0x10000, data)
	require.NoError(t, err)

	var phases []string
	var final Progress
	ldr := newTestLoader(t,
		WithProgressCallback(func(p Progress) {
			phases = append(phases, p.Phase)
			final = p
		}),
	)

	require.NoError(t, ldr.FlashImage(context.Background(), img))

	require.NotEmpty(t, phases)
	assert.Equal(t, PhaseProbing, phases[0])
	assert.Contains(t, phases, PhaseWriting)
	assert.Contains(t, phases, PhaseVerifying)
	assert.Equal(t, PhaseComplete, final.Phase)
	assert.Equal(t, float64(100), final.Percentage)
	assert.Equal(t, len(img.Pages), final.CurrentPage)
	assert.Equal(t, img.Size(), final.BytesWritten)

	// The flashed content reads back, tail padding included
	got, err := ldr.ReadRange(context.Background(), 0x10000, 64)
	require.NoError(t, err)
	assert.Equal(t, data[:64], got)
}

func TestLoaderFlashImageNil(t *testing.T) {
	ldr := newTestLoader(t)

	assert.Error(t, ldr.FlashImage(context.Background(), nil))
	assert.Error(t, ldr.FlashImage(context.Background(), &firmware.Image{}))
}

func TestLoaderFlashImageCancelled(t *testing.T) {
	data := make([]byte, protocol.IntPageSize)
	img, err := firmware.FromBinary(0, data)
	require.NoError(t, err)

	ldr := newTestLoader(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = ldr.FlashImage(ctx, img)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

// silentDevice accepts writes and never produces response bytes.
type silentDevice struct{}

func (silentDevice) Write(p []byte) (int, error) { return len(p), nil }

func (silentDevice) Read(p []byte) (int, error) {
	time.Sleep(time.Millisecond)
	return 0, nil
}

func TestLoaderTimeout(t *testing.T) {
	ldr := New(silentDevice{},
		WithReadTimeout(20*time.Millisecond),
		WithRetries(1),
	)

	err := ldr.Ping(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTimeout), "err = %v, want ErrTimeout", err)
}

func TestLoaderInvalidCommand(t *testing.T) {
	ldr := newTestLoader(t)

	// Page data of the wrong size is rejected before anything hits the wire
	err := ldr.WritePage(context.Background(), 0x1000, make([]byte, 100))
	require.Error(t, err)
	assert.ErrorIs(t, err, protocol.ErrBadArguments)
}
