package secapi

// ObjectID names a key, certificate, or bundle within a processor.
type ObjectID uint64

// InvalidObjectID is the reserved all-ones sentinel.
const InvalidObjectID ObjectID = 0xFFFFFFFFFFFFFFFF

// Reserved object IDs, per spec §3/§6.
const (
	ObjectIDStoreAESKey       ObjectID = 0x0000000000000001
	ObjectIDStoreMACGenKey    ObjectID = 0x0000000000000002
	ObjectIDBaseKeyAES        ObjectID = 0x0000000000000003
	ObjectIDBaseKeyMAC        ObjectID = 0x0000000000000004
	ObjectIDCertStoreKey      ObjectID = 0x0000000000000005
	ObjectIDOpenSSLDeriveTemp ObjectID = 0x0000000000000006
)

// KeyType tags a provisioned key's algorithm and length.
type KeyType int

const (
	KeyTypeUnknown KeyType = iota
	KeyTypeAES128
	KeyTypeAES256
	KeyTypeHMAC128
	KeyTypeHMAC160
	KeyTypeHMAC256
	KeyTypeRSA1024
	KeyTypeRSA2048
	KeyTypeRSA1024Public
	KeyTypeRSA2048Public
)

// Len returns the symmetric key length in bytes for symmetric types, or
// the RSA modulus length in bytes for RSA types. It returns 0 for
// KeyTypeUnknown.
func (t KeyType) Len() int {
	switch t {
	case KeyTypeAES128, KeyTypeHMAC128:
		return 16
	case KeyTypeHMAC160:
		return 20
	case KeyTypeAES256, KeyTypeHMAC256:
		return 32
	case KeyTypeRSA1024, KeyTypeRSA1024Public:
		return 128
	case KeyTypeRSA2048, KeyTypeRSA2048Public:
		return 256
	default:
		return 0
	}
}

// IsSymmetric reports whether the key type denotes a symmetric key.
func (t KeyType) IsSymmetric() bool {
	switch t {
	case KeyTypeAES128, KeyTypeAES256, KeyTypeHMAC128, KeyTypeHMAC160, KeyTypeHMAC256:
		return true
	default:
		return false
	}
}

// IsPublic reports whether the key type denotes an RSA public key.
func (t KeyType) IsPublic() bool {
	return t == KeyTypeRSA1024Public || t == KeyTypeRSA2048Public
}

// IsRSA reports whether the key type denotes any RSA key (public or private).
func (t KeyType) IsRSA() bool {
	switch t {
	case KeyTypeRSA1024, KeyTypeRSA2048, KeyTypeRSA1024Public, KeyTypeRSA2048Public:
		return true
	default:
		return false
	}
}

func (t KeyType) String() string {
	switch t {
	case KeyTypeAES128:
		return "AES_128"
	case KeyTypeAES256:
		return "AES_256"
	case KeyTypeHMAC128:
		return "HMAC_128"
	case KeyTypeHMAC160:
		return "HMAC_160"
	case KeyTypeHMAC256:
		return "HMAC_256"
	case KeyTypeRSA1024:
		return "RSA_1024"
	case KeyTypeRSA2048:
		return "RSA_2048"
	case KeyTypeRSA1024Public:
		return "RSA_1024_PUBLIC"
	case KeyTypeRSA2048Public:
		return "RSA_2048_PUBLIC"
	default:
		return "UNKNOWN"
	}
}

// ContainerType tags the wire encoding of an incoming or stored key blob.
type ContainerType int

const (
	ContainerUnknown ContainerType = iota
	ContainerRawSymmetric
	ContainerRawRSAPrivate
	ContainerRawRSAPublic
	ContainerDERPKCS8
	ContainerDERRSAPublic
	ContainerPEMRSAPrivate
	ContainerPEMRSAPublic
	ContainerDerivedInputs
	ContainerStore
)

// Location is a storage-tier hint for Provision.
type Location int

const (
	LocationRAM Location = iota
	LocationRAMSoftWrapped
	LocationFile
	LocationFileSoftWrapped
	LocationOEM
)

// Root names a key-ladder root of trust. Only RootUnique is implemented;
// every other root is a stub for the real hardware-root contract this
// reference fakes with a constant (spec §4.2, §9).
type Root int

const (
	RootUnique Root = iota
	RootOEM
	RootHardwareUnique
)

// MaxContainerBytes bounds a wrapped key record's container_bytes length
// (spec §3).
const MaxContainerBytes = 4096

// MaxBundleBytes bounds an opaque bundle record's length (spec §3).
const MaxBundleBytes = 1 << 20

// DeviceRootKey is the fake, hard-coded device root of trust this
// reference implementation fakes the HW contract with (spec §4.7, §9).
// Production builds must route this through a real HSM/TEE; nothing else
// in the core changes if they do.
var DeviceRootKey = [16]byte{
	0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07,
	0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f,
}

// FakeDeviceID is the constant device identifier installed at processor
// creation (spec §4.7, §9).
var FakeDeviceID = [8]byte{'S', 'E', 'C', 'A', 'P', 'I', 0x00, 0x01}

// KeyStoreMagic is the fixed ASCII magic at the head of every store blob
// (spec §4.1, §6).
const KeyStoreMagic = "SECKSTR\x00"
