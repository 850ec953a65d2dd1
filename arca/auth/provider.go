package auth

import (
	"context"
	"sync"

	"github.com/go-faster/errors"
	"github.com/jonboulle/clockwork"

	"github.com/arcafe/go-arca-client/arca/model"
)

// Provider resolves a usable credential for one (CUIT, environment) pair:
// in-memory slot first, then the durable cache, then a fresh
// authentication with write-through. It is the sole owner of the in-memory
// credential; read-modify-write on the durable cache is serialized by the
// provider's lock within this process.
type Provider struct {
	svc   Service
	cache *FileCache
	cuit  string
	env   string
	clock clockwork.Clock

	mu      sync.Mutex
	current *model.Credential
}

func NewProvider(svc Service, cache *FileCache, cuit, env string, clock clockwork.Clock) *Provider {
	return &Provider{
		svc:   svc,
		cache: cache,
		cuit:  cuit,
		env:   env,
		clock: clock,
	}
}

// Credential returns a credential valid for at least the safety margin.
func (p *Provider) Credential(ctx context.Context) (*model.Credential, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.clock.Now()

	if p.current.Valid(now, SafetyMargin) {
		return p.current, nil
	}

	if disk := p.cache.Load(p.cuit, p.env); disk != nil {
		p.current = disk
		return p.current, nil
	}

	logger.Info("requesting a new credential from the authentication service")

	cred, err := p.svc.Authenticate(ctx)
	if err != nil {
		if isActiveTicketFault(err) {
			// The remote side holds an active ticket we don't have. The
			// durable entry is unreliable at this point, drop it.
			p.cache.Delete(p.cuit, p.env)
			p.current = nil
			return nil, errors.Wrap(ErrActiveTicket, err.Error())
		}
		return nil, err
	}

	p.cache.Save(p.cuit, p.env, cred)
	p.current = cred
	return p.current, nil
}

// Invalidate drops the in-memory credential and the durable entry.
func (p *Provider) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = nil
	p.cache.Delete(p.cuit, p.env)
}
