package provision

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"statproj/internal/errs"
)

const lockFileName = "poetry.lock"

// Opts controls a provisioning run.
type Opts struct {
	NoKernel   bool
	KernelName string // defaults to the project name
	Force      bool   // re-provision even when the lock hash is unchanged
}

// Outcome describes what a provisioning run did.
type Outcome struct {
	Skipped    bool
	EnvPath    string
	KernelName string
	LockHash   string
}

// Provisioner drives the environment manager and keeps the registry in sync.
type Provisioner struct {
	mgr Manager
	reg *Registry
	log *zap.Logger

	// attachKernel is stubbed in tests; the real one rewrites kernel.json on
	// disk under the user's Jupyter directory.
	attachKernel func(kernelDir string) error
}

func NewProvisioner(mgr Manager, reg *Registry, log *zap.Logger) *Provisioner {
	return &Provisioner{mgr: mgr, reg: reg, log: log, attachKernel: AttachLoginShell}
}

// Provision brings the project environment up to date. Runs are idempotent:
// when the lock hash matches the registry and the venv still exists, no
// external tool is invoked.
func (p *Provisioner) Provision(ctx context.Context, projectDir, projectName string, opts Opts) (*Outcome, error) {
	kernelName := opts.KernelName
	if kernelName == "" {
		kernelName = projectName
	}

	if !hasLockFile(projectDir) {
		p.log.Info("no lock file, resolving dependencies", zap.String("project", projectName))
		if err := p.mgr.Lock(ctx, projectDir); err != nil {
			return nil, err
		}
	}
	hash, err := lockHash(projectDir)
	if err != nil {
		return nil, err
	}

	rec, err := p.reg.Get(projectDir)
	if err != nil {
		return nil, err
	}
	if !opts.Force && rec != nil && rec.LockHash == hash && dirExists(rec.EnvPath) {
		kernelOK := opts.NoKernel || rec.KernelName != ""
		if kernelOK {
			p.log.Debug("environment up to date", zap.String("project", projectName),
				zap.String("lock_hash", hash[:12]))
			return &Outcome{Skipped: true, EnvPath: rec.EnvPath, KernelName: rec.KernelName, LockHash: hash}, nil
		}
		// Env is current but the kernel never got registered; fall through so
		// only the kernel step runs again.
		p.log.Info("environment current, retrying kernel registration", zap.String("project", projectName))
		if err := p.registerKernel(ctx, projectDir, kernelName); err != nil {
			return nil, err
		}
		rec.KernelName = kernelName
		if err := p.reg.Put(rec); err != nil {
			return nil, err
		}
		return &Outcome{EnvPath: rec.EnvPath, KernelName: kernelName, LockHash: hash}, nil
	}

	p.log.Info("installing dependencies", zap.String("project", projectName))
	if err := p.mgr.Install(ctx, projectDir); err != nil {
		return nil, err
	}
	envPath, err := p.mgr.EnvPath(ctx, projectDir)
	if err != nil {
		return nil, err
	}

	// The row is written before kernel registration so a kernel failure
	// leaves a retryable state rather than forcing a full reinstall.
	newRec := &Record{
		ProjectPath: projectDir,
		ProjectName: projectName,
		EnvPath:     envPath,
		LockHash:    hash,
	}
	if err := p.reg.Put(newRec); err != nil {
		return nil, err
	}

	if !opts.NoKernel {
		if err := p.registerKernel(ctx, projectDir, kernelName); err != nil {
			return nil, err
		}
		newRec.KernelName = kernelName
		if err := p.reg.Put(newRec); err != nil {
			return nil, err
		}
	}

	return &Outcome{EnvPath: envPath, KernelName: newRec.KernelName, LockHash: hash}, nil
}

func (p *Provisioner) registerKernel(ctx context.Context, projectDir, name string) error {
	if err := p.mgr.RegisterKernel(ctx, projectDir, name); err != nil {
		return err
	}
	kernelDir, err := p.mgr.KernelDir(ctx, name)
	if err != nil {
		return err
	}
	return p.attachKernel(kernelDir)
}

// Clean removes the project's Jupyter kernel and registry record, and
// optionally its virtualenv directory.
func (p *Provisioner) Clean(ctx context.Context, projectDir, kernelName string, removeVenv bool) error {
	if err := p.mgr.RemoveKernel(ctx, kernelName); err != nil {
		return err
	}
	if removeVenv {
		venv := filepath.Join(projectDir, ".venv")
		if dirExists(venv) {
			if err := os.RemoveAll(venv); err != nil {
				return errs.Wrap(errs.EEnvCreate, "remove virtualenv", err)
			}
		}
	}
	return p.reg.Delete(projectDir)
}

// Upgrade bumps dependencies and refreshes the registry hash so the next
// build does not treat the upgraded env as stale.
func (p *Provisioner) Upgrade(ctx context.Context, projectDir, projectName string) error {
	if err := p.mgr.Upgrade(ctx, projectDir); err != nil {
		return err
	}
	hash, err := lockHash(projectDir)
	if err != nil {
		return err
	}
	rec, err := p.reg.Get(projectDir)
	if err != nil {
		return err
	}
	if rec == nil {
		envPath, err := p.mgr.EnvPath(ctx, projectDir)
		if err != nil {
			return err
		}
		rec = &Record{ProjectPath: projectDir, ProjectName: projectName, EnvPath: envPath}
	}
	rec.LockHash = hash
	rec.UpdatedAt = time.Now().UTC()
	return p.reg.Put(rec)
}

func hasLockFile(projectDir string) bool {
	_, err := os.Stat(filepath.Join(projectDir, lockFileName))
	return err == nil
}

// lockHash is the SHA-256 of poetry.lock, hex encoded.
func lockHash(projectDir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(projectDir, lockFileName))
	if err != nil {
		return "", errs.Wrap(errs.EDependencyResolution, "read lock file", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
