// Package repository implements the object-ID-indexed key/certificate/
// bundle store (spec.md §4.3): a RAM map per kind backed by a filesystem
// directory, with provision/get/delete/list lifecycle. Per spec §9's
// design note, RAM storage is a map keyed by ObjectID rather than the
// original's singly-linked list — deletion is O(1) and there is no
// predecessor tracking to get wrong.
package repository

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/r3e-network/go-secapi"
)

// Location mirrors secapi.Location for readability at call sites.
type Location = secapi.Location

// KeyRecord is a provisioned key. For FILE/FILE_SOFT_WRAPPED locations,
// Blob is the opaque securestore.Store output; for RAM/RAM_SOFT_WRAPPED
// it carries the already-normalized container bytes directly (raw
// symmetric bytes, or a DerivedInputs pair when Container is
// secapi.ContainerDerivedInputs), since RAM entries are never store-wrapped
// (spec §9 glossary: "soft-wrapped" has the same contract as normal
// storage here).
type KeyRecord struct {
	ID        secapi.ObjectID
	KeyType   secapi.KeyType
	Container secapi.ContainerType
	Location  Location
	Blob      []byte
}

// CertRecord is a provisioned X.509 certificate plus its integrity MAC.
type CertRecord struct {
	ID       secapi.ObjectID
	Location Location
	DER      []byte
	MAC      [32]byte
}

// BundleRecord is an opaque caller blob.
type BundleRecord struct {
	ID       secapi.ObjectID
	Location Location
	Bytes    []byte
}

// Dirs names the three configurable storage directories (spec §4.7/§6).
// Each is guaranteed a trailing separator by NewDirs.
type Dirs struct {
	Keys    string
	Certs   string
	Bundles string
}

const maxPathComponent = 4096 - 2 // MAX_PATH-2 stand-in (spec §4.7)

// NewDirs validates and normalizes three directory paths, appending a
// trailing separator and creating each directory.
func NewDirs(keys, certs, bundles string) (Dirs, error) {
	for _, d := range []string{keys, certs, bundles} {
		if len(d) >= maxPathComponent {
			return Dirs{}, secapi.ErrInvalidParameters("storage directory name too long")
		}
	}
	d := Dirs{
		Keys:    ensureTrailingSeparator(keys),
		Certs:   ensureTrailingSeparator(certs),
		Bundles: ensureTrailingSeparator(bundles),
	}
	for _, dir := range []string{d.Keys, d.Certs, d.Bundles} {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return Dirs{}, secapi.ErrFailure("create storage directory", err)
		}
	}
	return d, nil
}

func ensureTrailingSeparator(dir string) string {
	if dir == "" {
		return dir
	}
	if dir[len(dir)-1] == filepath.Separator {
		return dir
	}
	return dir + string(filepath.Separator)
}

// Repository holds the RAM maps and directory paths for one processor
// instance's keys, certs, and bundles.
type Repository struct {
	dirs    Dirs
	keys    map[secapi.ObjectID]*KeyRecord
	certs   map[secapi.ObjectID]*CertRecord
	bundles map[secapi.ObjectID]*BundleRecord
}

// New constructs an empty Repository rooted at dirs.
func New(dirs Dirs) *Repository {
	return &Repository{
		dirs:    dirs,
		keys:    make(map[secapi.ObjectID]*KeyRecord),
		certs:   make(map[secapi.ObjectID]*CertRecord),
		bundles: make(map[secapi.ObjectID]*BundleRecord),
	}
}

func keyPath(dirs Dirs, id secapi.ObjectID) string {
	return filepath.Join(dirs.Keys, strconv.FormatUint(uint64(id), 10)+".key")
}

func keyInfoPath(dirs Dirs, id secapi.ObjectID) string {
	return filepath.Join(dirs.Keys, strconv.FormatUint(uint64(id), 10)+".info")
}

func certPath(dirs Dirs, id secapi.ObjectID) string {
	return filepath.Join(dirs.Certs, strconv.FormatUint(uint64(id), 10)+".cert")
}

func certInfoPath(dirs Dirs, id secapi.ObjectID) string {
	return filepath.Join(dirs.Certs, strconv.FormatUint(uint64(id), 10)+".info")
}

func bundlePath(dirs Dirs, id secapi.ObjectID) string {
	return filepath.Join(dirs.Bundles, strconv.FormatUint(uint64(id), 10)+".bundle")
}

// ProvisionKey installs rec at location, replacing any existing entry at
// rec.ID first (spec §4.3).
func (r *Repository) ProvisionKey(rec *KeyRecord) error {
	if len(rec.Blob) > secapi.MaxContainerBytes {
		return secapi.ErrInvalidInputSize("key container exceeds MAX_CONTAINER")
	}
	if rec.Location == secapi.LocationOEM {
		return secapi.ErrFailure("oem provisioning location", nil)
	}
	r.deleteKeyQuiet(rec.ID)

	switch rec.Location {
	case secapi.LocationRAM, secapi.LocationRAMSoftWrapped:
		r.keys[rec.ID] = rec
	case secapi.LocationFile, secapi.LocationFileSoftWrapped:
		if err := writeFileClean(keyPath(r.dirs, rec.ID), rec.Blob); err != nil {
			return secapi.ErrFailure("write key file", err)
		}
		info := encodeKeyInfo(rec.KeyType)
		if err := writeFileClean(keyInfoPath(r.dirs, rec.ID), info); err != nil {
			os.Remove(keyPath(r.dirs, rec.ID))
			return secapi.ErrFailure("write key info file", err)
		}
	default:
		return secapi.ErrUnimplemented("storage location")
	}
	return nil
}

// GetKey retrieves a key record, RAM first, then file (spec §4.3).
func (r *Repository) GetKey(id secapi.ObjectID) (*KeyRecord, error) {
	if rec, ok := r.keys[id]; ok {
		return rec, nil
	}
	blob, err := os.ReadFile(keyPath(r.dirs, id))
	if err != nil {
		return nil, secapi.ErrNoSuchItem(id)
	}
	infoBytes, err := os.ReadFile(keyInfoPath(r.dirs, id))
	if err != nil {
		return nil, secapi.ErrFailure("read key info file", err)
	}
	kt, err := decodeKeyInfo(infoBytes)
	if err != nil {
		return nil, err
	}
	// A persisted key's container type is always STORE (spec §3 invariant);
	// the real inner type lives inside the store blob's own header.
	return &KeyRecord{ID: id, KeyType: kt, Container: secapi.ContainerStore, Location: secapi.LocationFile, Blob: blob}, nil
}

// DeleteKey removes a key from both RAM and file tiers (spec §4.3, §8).
// The six reserved system object IDs (store/base/cert-store keys) are
// non-removable: they back the processor's own bootstrap state.
func (r *Repository) DeleteKey(id secapi.ObjectID) error {
	_, foundRAM := r.keys[id]
	foundFile := fileExists(keyPath(r.dirs, id))
	if !foundRAM && !foundFile {
		return secapi.ErrNoSuchItem(id)
	}
	if isReservedObjectID(id) {
		return secapi.ErrItemNonRemovable(id)
	}
	if foundRAM {
		r.deleteKeyQuiet(id)
	}
	if foundFile {
		os.Remove(keyPath(r.dirs, id))
		os.Remove(keyInfoPath(r.dirs, id))
	}
	return nil
}

func isReservedObjectID(id secapi.ObjectID) bool {
	switch id {
	case secapi.ObjectIDStoreAESKey, secapi.ObjectIDStoreMACGenKey,
		secapi.ObjectIDBaseKeyAES, secapi.ObjectIDBaseKeyMAC,
		secapi.ObjectIDCertStoreKey, secapi.ObjectIDOpenSSLDeriveTemp:
		return true
	default:
		return false
	}
}

func (r *Repository) deleteKeyQuiet(id secapi.ObjectID) bool {
	if _, ok := r.keys[id]; ok {
		delete(r.keys, id)
		return true
	}
	return false
}

// ListKeys enumerates RAM entries then filesystem entries, per spec §4.3.
func (r *Repository) ListKeys() []secapi.ObjectID {
	seen := make(map[secapi.ObjectID]bool)
	var out []secapi.ObjectID
	for id := range r.keys {
		out = append(out, id)
		seen[id] = true
	}
	for _, id := range listDirIDs(r.dirs.Keys, ".key") {
		if !seen[id] {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ProvisionCert installs a certificate record (spec §4.3).
func (r *Repository) ProvisionCert(rec *CertRecord) error {
	if rec.Location == secapi.LocationOEM {
		return secapi.ErrFailure("oem provisioning location", nil)
	}
	r.deleteCertQuiet(rec.ID)

	switch rec.Location {
	case secapi.LocationRAM, secapi.LocationRAMSoftWrapped:
		r.certs[rec.ID] = rec
	case secapi.LocationFile, secapi.LocationFileSoftWrapped:
		if err := writeFileClean(certPath(r.dirs, rec.ID), rec.DER); err != nil {
			return secapi.ErrFailure("write cert file", err)
		}
		// Spec §9 open question: the original ignores this WriteFile's
		// failure return and falls through to success. Preserved as-is.
		_ = writeFileClean(certInfoPath(r.dirs, rec.ID), rec.MAC[:])
	default:
		return secapi.ErrUnimplemented("storage location")
	}
	return nil
}

// GetCert retrieves a certificate record, RAM first, then file.
func (r *Repository) GetCert(id secapi.ObjectID) (*CertRecord, error) {
	if rec, ok := r.certs[id]; ok {
		return rec, nil
	}
	der, err := os.ReadFile(certPath(r.dirs, id))
	if err != nil {
		return nil, secapi.ErrNoSuchItem(id)
	}
	macBytes, err := os.ReadFile(certInfoPath(r.dirs, id))
	if err != nil {
		return nil, secapi.ErrFailure("read cert info file", err)
	}
	if len(macBytes) != 32 {
		return nil, secapi.ErrFailure("cert info size mismatch", nil)
	}
	var mac [32]byte
	copy(mac[:], macBytes)
	return &CertRecord{ID: id, Location: secapi.LocationFile, DER: der, MAC: mac}, nil
}

// DeleteCert removes a certificate from both tiers. Spec §9 open
// question: the `.info` (MAC) file is only removed once the `.cert` file
// itself is gone — this inverted ordering is preserved as-is.
func (r *Repository) DeleteCert(id secapi.ObjectID) error {
	foundRAM := r.deleteCertQuiet(id)
	foundFile := fileExists(certPath(r.dirs, id))
	if foundFile {
		os.Remove(certPath(r.dirs, id))
		if !fileExists(certPath(r.dirs, id)) {
			os.Remove(certInfoPath(r.dirs, id))
		}
	}
	if !foundRAM && !foundFile {
		return secapi.ErrNoSuchItem(id)
	}
	return nil
}

func (r *Repository) deleteCertQuiet(id secapi.ObjectID) bool {
	if _, ok := r.certs[id]; ok {
		delete(r.certs, id)
		return true
	}
	return false
}

// ListCerts enumerates RAM entries then filesystem entries.
func (r *Repository) ListCerts() []secapi.ObjectID {
	seen := make(map[secapi.ObjectID]bool)
	var out []secapi.ObjectID
	for id := range r.certs {
		out = append(out, id)
		seen[id] = true
	}
	for _, id := range listDirIDs(r.dirs.Certs, ".cert") {
		if !seen[id] {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ProvisionBundle installs an opaque bundle record (spec §3, §4.3).
func (r *Repository) ProvisionBundle(rec *BundleRecord) error {
	if len(rec.Bytes) > secapi.MaxBundleBytes {
		return secapi.ErrInvalidInputSize("bundle exceeds MAX_BUNDLE")
	}
	if rec.Location == secapi.LocationOEM {
		return secapi.ErrFailure("oem provisioning location", nil)
	}
	r.deleteBundleQuiet(rec.ID)

	switch rec.Location {
	case secapi.LocationRAM, secapi.LocationRAMSoftWrapped:
		r.bundles[rec.ID] = rec
	case secapi.LocationFile, secapi.LocationFileSoftWrapped:
		if err := writeFileClean(bundlePath(r.dirs, rec.ID), rec.Bytes); err != nil {
			return secapi.ErrFailure("write bundle file", err)
		}
	default:
		return secapi.ErrUnimplemented("storage location")
	}
	return nil
}

// GetBundle retrieves a bundle record, RAM first, then file.
func (r *Repository) GetBundle(id secapi.ObjectID) (*BundleRecord, error) {
	if rec, ok := r.bundles[id]; ok {
		return rec, nil
	}
	b, err := os.ReadFile(bundlePath(r.dirs, id))
	if err != nil {
		return nil, secapi.ErrNoSuchItem(id)
	}
	return &BundleRecord{ID: id, Location: secapi.LocationFile, Bytes: b}, nil
}

// DeleteBundle removes a bundle from both tiers.
func (r *Repository) DeleteBundle(id secapi.ObjectID) error {
	foundRAM := r.deleteBundleQuiet(id)
	foundFile := fileExists(bundlePath(r.dirs, id))
	if foundFile {
		os.Remove(bundlePath(r.dirs, id))
	}
	if !foundRAM && !foundFile {
		return secapi.ErrNoSuchItem(id)
	}
	return nil
}

func (r *Repository) deleteBundleQuiet(id secapi.ObjectID) bool {
	if _, ok := r.bundles[id]; ok {
		delete(r.bundles, id)
		return true
	}
	return false
}

// ListBundles enumerates RAM entries then filesystem entries.
func (r *Repository) ListBundles() []secapi.ObjectID {
	seen := make(map[secapi.ObjectID]bool)
	var out []secapi.ObjectID
	for id := range r.bundles {
		out = append(out, id)
		seen[id] = true
	}
	for _, id := range listDirIDs(r.dirs.Bundles, ".bundle") {
		if !seen[id] {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Release zeroizes and frees every RAM-resident record (spec §4.3, §4.7).
// File-tier entries are untouched.
func (r *Repository) Release() {
	for id, rec := range r.keys {
		zero(rec.Blob)
		delete(r.keys, id)
	}
	for id := range r.certs {
		delete(r.certs, id)
	}
	for id := range r.bundles {
		delete(r.bundles, id)
	}
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func writeFileClean(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o600); err != nil {
		os.Remove(path)
		return err
	}
	return nil
}

func listDirIDs(dir, ext string) []secapi.ObjectID {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []secapi.ObjectID
	for _, e := range entries {
		name := e.Name()
		if filepath.Ext(name) != ext {
			continue
		}
		idStr := name[:len(name)-len(ext)]
		n, err := strconv.ParseUint(idStr, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, secapi.ObjectID(n))
	}
	return out
}

// encodeKeyInfo/decodeKeyInfo implement the `.info` metadata struct: a
// single little-endian uint32 holding the KeyType tag (spec §6).
func encodeKeyInfo(kt secapi.KeyType) []byte {
	b := make([]byte, 4)
	b[0] = byte(kt)
	b[1] = byte(kt >> 8)
	b[2] = byte(kt >> 16)
	b[3] = byte(kt >> 24)
	return b
}

func decodeKeyInfo(b []byte) (secapi.KeyType, error) {
	if len(b) != 4 {
		return secapi.KeyTypeUnknown, secapi.ErrFailure("key info size mismatch", nil)
	}
	v := uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
	return secapi.KeyType(v), nil
}
