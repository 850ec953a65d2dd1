package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/arcafe/go-arca-client/arca/model"
)

// SafetyMargin is subtracted from a credential's expiration before it is
// considered usable, to avoid racing the remote clock.
const SafetyMargin = 5 * time.Minute

// FileCache persists credentials across process restarts, one JSON file per
// (CUIT, environment) pair. There is no cross-process locking: concurrent
// processes racing to authenticate can both succeed, and the last write
// wins, which is harmless since either credential stays valid on its own
// clock.
type FileCache struct {
	dir   string
	clock clockwork.Clock
}

func NewFileCache(dir string, clock clockwork.Clock) *FileCache {
	return &FileCache{dir: dir, clock: clock}
}

func (c *FileCache) path(cuit, env string) string {
	return filepath.Join(c.dir, fmt.Sprintf("token_%s_%s.json", cuit, env))
}

// Load returns the cached credential for the pair, or nil when the file is
// missing, unreadable, or already inside the safety margin. Stale and
// corrupt files are removed on the way out.
func (c *FileCache) Load(cuit, env string) *model.Credential {
	path := c.path(cuit, env)

	b, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warnf("could not read cached credential: %v", err)
		}
		return nil
	}

	var cred model.Credential
	if err := json.Unmarshal(b, &cred); err != nil {
		logger.Warnf("corrupt credential cache %s: %v", path, err)
		c.remove(path)
		return nil
	}

	if !cred.Valid(c.clock.Now(), SafetyMargin) {
		logger.Info("cached credential has expired, a new one will be requested")
		c.remove(path)
		return nil
	}

	logger.Infof("valid credential found on disk, expires %s", cred.Expiration)
	return &cred
}

// Save overwrites the durable entry. A write failure is logged, not fatal:
// the in-memory copy stays authoritative for this process.
func (c *FileCache) Save(cuit, env string, cred *model.Credential) {
	path := c.path(cuit, env)

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		logger.Warnf("could not create credential cache dir: %v", err)
		return
	}

	b, err := json.MarshalIndent(cred, "", "  ")
	if err != nil {
		logger.Warnf("could not encode credential: %v", err)
		return
	}

	if err := os.WriteFile(path, b, 0o600); err != nil {
		logger.Warnf("could not save credential to disk: %v", err)
		return
	}

	logger.Debugf("credential saved to %s", path)
}

// Delete removes the durable entry. Deleting a nonexistent entry is fine.
func (c *FileCache) Delete(cuit, env string) {
	c.remove(c.path(cuit, env))
}

func (c *FileCache) remove(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Warnf("could not remove %s: %v", path, err)
	}
}
