package processor

import (
	"github.com/r3e-network/go-secapi"
	"github.com/r3e-network/go-secapi/repository"
)

// ProvisionBundle installs an opaque caller blob at id (spec §3, §4.3).
func (p *Processor) ProvisionBundle(id secapi.ObjectID, location secapi.Location, data []byte) error {
	return p.repo.ProvisionBundle(&repository.BundleRecord{ID: id, Location: location, Bytes: data})
}

// GetBundle retrieves the opaque blob at id.
func (p *Processor) GetBundle(id secapi.ObjectID) ([]byte, error) {
	rec, err := p.repo.GetBundle(id)
	if err != nil {
		return nil, err
	}
	return rec.Bytes, nil
}

// DeleteBundle removes the bundle at id from every tier.
func (p *Processor) DeleteBundle(id secapi.ObjectID) error {
	return p.repo.DeleteBundle(id)
}

// ListBundles enumerates every provisioned bundle's object ID.
func (p *Processor) ListBundles() []secapi.ObjectID {
	return p.repo.ListBundles()
}
