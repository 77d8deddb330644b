package shm

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	internalshm "github.com/srediag/audio-shm/internal/shm"
	"github.com/srediag/audio-shm/pkg/ring"
)

const (
	defaultName          = "virtual_dap_audio"
	defaultDir           = "/dev/shm"
	defaultAttachTimeout = 50 * time.Millisecond
	attachPollInterval   = time.Millisecond
)

// Config describes the shared region both processes agree on.
type Config struct {
	// Name of the backing object inside Dir.
	Name string
	// Dir is the directory holding the backing object, a tmpfs mount in production.
	Dir string
	// Capacity is the data-area size. Producer and consumer must use the same value.
	Capacity uint32
	// Mode is the permission of a newly created object.
	Mode uint32
	// UnlinkOnClose removes the backing object when the last handle of this
	// process is closed.
	UnlinkOnClose bool
	// AttachTimeout bounds how long an attach waits for a concurrent creator
	// to size and initialize the region.
	AttachTimeout time.Duration
	// Tracer receives a span per open. Nil means no tracing.
	Tracer trace.Tracer
}

// DefaultConfig returns the configuration of the virtual DAP region.
// VDAP_SHM_NAME and VDAP_SHM_DIR override the name and directory.
func DefaultConfig() Config {
	c := Config{
		Name:          defaultName,
		Dir:           defaultDir,
		Capacity:      ring.DefaultCapacity,
		Mode:          internalshm.DefaultMode,
		AttachTimeout: defaultAttachTimeout,
	}
	if v := os.Getenv("VDAP_SHM_NAME"); v != "" {
		c.Name = v
	}
	if v := os.Getenv("VDAP_SHM_DIR"); v != "" {
		c.Dir = v
	}
	return c
}

// VerifyConfig checks c before any system call is made.
func VerifyConfig(c Config) error {
	if c.Name == "" || strings.ContainsRune(c.Name, filepath.Separator) {
		return fmt.Errorf("%w: name %q must be a non-empty file name", ErrInvalidConfig, c.Name)
	}
	if c.Dir == "" {
		return fmt.Errorf("%w: dir must not be empty", ErrInvalidConfig)
	}
	if !ring.ValidCapacity(c.Capacity) {
		return fmt.Errorf("%w: capacity %d outside [%d, %d]", ErrInvalidConfig, c.Capacity, ring.MinCapacity, ring.MaxCapacity)
	}
	if c.AttachTimeout < 0 {
		return fmt.Errorf("%w: negative attach timeout", ErrInvalidConfig)
	}
	return nil
}

// Path returns the location of the backing object.
func (c Config) Path() string {
	return filepath.Join(c.Dir, c.Name)
}

func (c Config) attachRetries() uint64 {
	if c.AttachTimeout <= 0 {
		return 0
	}
	return uint64(c.AttachTimeout / attachPollInterval)
}
