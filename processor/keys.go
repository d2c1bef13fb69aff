package processor

import (
	"github.com/r3e-network/go-secapi"
	"github.com/r3e-network/go-secapi/codec"
	"github.com/r3e-network/go-secapi/infrastructure/security"
	"github.com/r3e-network/go-secapi/primitives"
	"github.com/r3e-network/go-secapi/repository"
	"github.com/r3e-network/go-secapi/securestore"
)

// ProvisionKey normalizes raw through Codec to the canonical internal
// container for its declared containerType, wraps it in the secure store
// for FILE/FILE_SOFT_WRAPPED locations, and installs the result at id
// (spec §4.3: "Codec normalizes → Secure Store wraps → record
// installed"). An existing record at id is replaced.
func (p *Processor) ProvisionKey(id secapi.ObjectID, location secapi.Location, keyType secapi.KeyType, containerType secapi.ContainerType, raw []byte) error {
	if location == secapi.LocationOEM {
		return secapi.New(secapi.Failure, "OEM provisioning is unimplemented in this reference")
	}

	container, canonical, err := p.normalizeKeyContainer(keyType, containerType, raw)
	if err != nil {
		// A malformed DER/PEM blob can make the underlying parser's error
		// message echo fragments of the offending bytes; key material
		// must never reach a caller through an error string (spec
		// §4.8's zeroize-on-every-exit-path discipline extends to errors).
		return secapi.New(secapi.CodeOf(err), security.SanitizeError(err))
	}

	rec := &repository.KeyRecord{ID: id, KeyType: keyType, Container: container, Location: location, Blob: canonical}
	if location == secapi.LocationFile || location == secapi.LocationFileSoftWrapped {
		if container != secapi.ContainerStore {
			blob, err := p.wrapForStore(container, canonical)
			if err != nil {
				return err
			}
			rec.Blob = blob
			rec.Container = secapi.ContainerStore
		}
	}
	return p.repo.ProvisionKey(rec)
}

// normalizeKeyContainer parses raw per its declared containerType and
// re-emits the canonical form the rest of the core consumes: raw
// symmetric bytes, a raw RSA private/public struct, or a derived-inputs
// pair. An already-wrapped STORE container passes through untouched.
func (p *Processor) normalizeKeyContainer(keyType secapi.KeyType, containerType secapi.ContainerType, raw []byte) (secapi.ContainerType, []byte, error) {
	switch containerType {
	case secapi.ContainerRawSymmetric:
		b, err := codec.Symmetric(keyType, raw)
		return secapi.ContainerRawSymmetric, b, err

	case secapi.ContainerRawRSAPrivate:
		priv, err := codec.ParseRawRSAPrivate(raw)
		if err != nil {
			return 0, nil, err
		}
		b, err := codec.MarshalRawRSAPrivate(priv)
		return secapi.ContainerRawRSAPrivate, b, err

	case secapi.ContainerRawRSAPublic:
		pub, err := codec.ParseRawRSAPublic(raw)
		if err != nil {
			return 0, nil, err
		}
		return secapi.ContainerRawRSAPublic, codec.MarshalRawRSAPublic(pub), nil

	case secapi.ContainerDERPKCS8:
		priv, err := codec.ParsePKCS8(raw)
		if err != nil {
			return 0, nil, err
		}
		b, err := codec.MarshalRawRSAPrivate(priv)
		return secapi.ContainerRawRSAPrivate, b, err

	case secapi.ContainerDERRSAPublic:
		pub, err := codec.ParseDERRSAPublic(raw)
		if err != nil {
			return 0, nil, err
		}
		return secapi.ContainerRawRSAPublic, codec.MarshalRawRSAPublic(pub), nil

	case secapi.ContainerPEMRSAPrivate:
		priv, err := codec.ParsePEMRSAPrivate(raw)
		if err != nil {
			return 0, nil, err
		}
		b, err := codec.MarshalRawRSAPrivate(priv)
		return secapi.ContainerRawRSAPrivate, b, err

	case secapi.ContainerPEMRSAPublic:
		pub, err := codec.ParsePEMRSAPublic(raw)
		if err != nil {
			return 0, nil, err
		}
		return secapi.ContainerRawRSAPublic, codec.MarshalRawRSAPublic(pub), nil

	case secapi.ContainerDerivedInputs:
		di, err := codec.ParseDerivedInputs(raw)
		if err != nil {
			return 0, nil, err
		}
		return secapi.ContainerDerivedInputs, codec.MarshalDerivedInputs(di), nil

	case secapi.ContainerStore:
		return secapi.ContainerStore, raw, nil

	default:
		return 0, nil, secapi.ErrInvalidParameters("unknown key container type")
	}
}

func (p *Processor) wrapForStore(container secapi.ContainerType, payload []byte) ([]byte, error) {
	storeKeys, err := p.materializeStoreKeys()
	if err != nil {
		return nil, err
	}
	return securestore.Store(storeKeys, true, p.magic, securestore.Header{InnerContainerType: uint32(container)}, payload)
}

// GetKeyType returns the declared KeyType of the key at id.
func (p *Processor) GetKeyType(id secapi.ObjectID) (secapi.KeyType, error) {
	rec, err := p.repo.GetKey(id)
	if err != nil {
		return secapi.KeyTypeUnknown, err
	}
	return rec.KeyType, nil
}

// GetKeyLen returns the materialized byte length of the key at id.
func (p *Processor) GetKeyLen(id secapi.ObjectID) (int, error) {
	kt, err := p.GetKeyType(id)
	if err != nil {
		return 0, err
	}
	return kt.Len(), nil
}

// DeleteKey removes the key at id from every storage tier (spec §4.3).
func (p *Processor) DeleteKey(id secapi.ObjectID) error {
	return p.repo.DeleteKey(id)
}

// ListKeys enumerates every provisioned key's object ID (spec §4.3).
func (p *Processor) ListKeys() []secapi.ObjectID {
	return p.repo.ListKeys()
}

// ExtractPublicKey returns the raw RSA public struct (spec §6's
// Key_ExtractPublicKey: the codec.MarshalRawRSAPublic wire form, not a
// bare (n, e) pair) corresponding to a provisioned private or public
// key reference.
func (p *Processor) ExtractPublicKey(id secapi.ObjectID) ([]byte, error) {
	rec, err := p.repo.GetKey(id)
	if err != nil {
		return nil, err
	}
	if rec.KeyType.IsPublic() {
		pub, err := p.MaterializeRSAPublic(id)
		if err != nil {
			return nil, err
		}
		return codec.MarshalRawRSAPublic(pub), nil
	}
	priv, err := p.MaterializeRSAPrivate(id)
	if err != nil {
		return nil, err
	}
	return codec.MarshalRawRSAPublic(&priv.PublicKey), nil
}

// GenerateKey provisions id with keyType.Len() fresh random bytes as a
// raw symmetric key (spec §4.6's vendor/ladder derivations are the
// structured alternative; this is the plain random-fill path).
func (p *Processor) GenerateKey(id secapi.ObjectID, location secapi.Location, keyType secapi.KeyType) error {
	raw, err := primitives.RandomBytes(keyType.Len())
	if err != nil {
		return err
	}
	return p.ProvisionKey(id, location, keyType, secapi.ContainerRawSymmetric, raw)
}
