// Package bundle packages the artifacts of a deployed chain into a
// downloadable archive.
package bundle

import (
	"archive/tar"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/pelletier/go-toml/v2"

	"github.com/Bidon15/orbit-setup/internal/orbit"
	"github.com/Bidon15/orbit-setup/internal/session"
	"github.com/Bidon15/orbit-setup/internal/storage"
)

// Bundle file names.
const (
	NodeConfigFile     = "node-config.json"
	L3ConfigFile       = "orbitSetupScriptConfig.json"
	CoreContractsFile  = "core-contracts.json"
	CelestiaConfigFile = "celestia-config.toml"
	ChecksumsFile      = "SHA256SUMS"
)

// ErrNotDeployed is returned when the session holds no deployment.
var ErrNotDeployed = errors.New("the chain has not been deployed yet")

// Result is a built bundle.
type Result struct {
	// Filename is the suggested archive name.
	Filename string
	Data     []byte
	// Checksum is the SHA256 of Data.
	Checksum string
	// Files maps each archived file to its SHA256.
	Files map[string]string
}

// Bundler builds artifact bundles from the stored node and L3 config.
type Bundler struct {
	storage storage.Storage
	now     func() time.Time
}

// NewBundler creates a Bundler reading artifacts from store.
func NewBundler(store storage.Storage) *Bundler {
	return &Bundler{storage: store, now: time.Now}
}

// Write builds the bundle of state and copies it to w.
func (b *Bundler) Write(ctx context.Context, state session.State, w io.Writer) error {
	result, err := b.Build(ctx, state)
	if err != nil {
		return err
	}
	if _, err := w.Write(result.Data); err != nil {
		return fmt.Errorf("write bundle: %w", err)
	}
	return nil
}

// Build creates the .tar.gz bundle of a deployed session.
func (b *Bundler) Build(ctx context.Context, state session.State) (*Result, error) {
	if !state.Deployed() {
		return nil, ErrNotDeployed
	}

	nodeConfig, err := b.artifact(ctx, session.NodeConfigKey)
	if err != nil {
		return nil, err
	}
	l3Config, err := b.artifact(ctx, session.L3ConfigKey)
	if err != nil {
		return nil, err
	}
	contracts, err := json.MarshalIndent(state.RollupContracts, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal core contracts: %w", err)
	}

	dir := sanitizeName(state.RollupConfig.ChainName)
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	tw := newTarWriter(tar.NewWriter(gw), dir, b.now())

	if err := tw.addFile(NodeConfigFile, nodeConfig); err != nil {
		return nil, err
	}
	if err := tw.addFile(L3ConfigFile, l3Config); err != nil {
		return nil, err
	}
	if err := tw.addFile(CoreContractsFile, contracts); err != nil {
		return nil, err
	}

	if state.ChainType != nil && *state.ChainType == orbit.ChainTypeCelestiaDA {
		celestia, err := celestiaTOML(nodeConfig)
		if err != nil {
			return nil, err
		}
		if err := tw.addFile(CelestiaConfigFile, celestia); err != nil {
			return nil, err
		}
	}

	files := tw.checksums
	if err := tw.addFile(ChecksumsFile, checksumsFile(files)); err != nil {
		return nil, err
	}

	data, err := finalizeTarGz(tw.tw, gw, &buf)
	if err != nil {
		return nil, err
	}

	sum := sha256.Sum256(data)
	return &Result{
		Filename: Filename(state.RollupConfig.ChainName),
		Data:     data,
		Checksum: hex.EncodeToString(sum[:]),
		Files:    files,
	}, nil
}

// artifact loads a stored artifact and indents it.
func (b *Bundler) artifact(ctx context.Context, key string) ([]byte, error) {
	raw, err := b.storage.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%s is missing, run `orbit-setup artifacts regenerate`: %w", key, err)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}

	var out bytes.Buffer
	if err := json.Indent(&out, []byte(raw), "", "  "); err != nil {
		return nil, fmt.Errorf("%s is not valid JSON: %w", key, err)
	}
	return out.Bytes(), nil
}

// celestiaTOML extracts the Celestia section of a node config as TOML.
func celestiaTOML(nodeConfig []byte) ([]byte, error) {
	var cfg orbit.NodeConfig
	if err := json.Unmarshal(nodeConfig, &cfg); err != nil {
		return nil, fmt.Errorf("parse node config: %w", err)
	}
	if cfg.Node.Celestia == nil {
		return nil, fmt.Errorf("node config of a CelestiaDA chain has no celestia-cfg section")
	}

	data, err := toml.Marshal(struct {
		Celestia orbit.CelestiaConfig `toml:"celestia"`
	}{*cfg.Node.Celestia})
	if err != nil {
		return nil, fmt.Errorf("marshal celestia config: %w", err)
	}
	return data, nil
}

func checksumsFile(checksums map[string]string) []byte {
	names := make([]string, 0, len(checksums))
	for name := range checksums {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	for _, name := range names {
		fmt.Fprintf(&sb, "%s  %s\n", checksums[name], name)
	}
	return []byte(sb.String())
}

// ============================================================================
// Tar Helper Functions
// ============================================================================

// tarWriter writes files below a directory and tracks their checksums.
type tarWriter struct {
	tw        *tar.Writer
	dir       string
	modTime   time.Time
	checksums map[string]string
}

func newTarWriter(tw *tar.Writer, dir string, modTime time.Time) *tarWriter {
	return &tarWriter{
		tw:        tw,
		dir:       dir,
		modTime:   modTime,
		checksums: make(map[string]string),
	}
}

// addFile adds a file with 0644 permissions.
func (tw *tarWriter) addFile(name string, content []byte) error {
	hash := sha256.Sum256(content)
	tw.checksums[name] = hex.EncodeToString(hash[:])

	hdr := &tar.Header{
		Name:    tw.dir + "/" + name,
		Size:    int64(len(content)),
		Mode:    0644,
		ModTime: tw.modTime,
	}
	if err := tw.tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("write header for %s: %w", name, err)
	}
	if _, err := tw.tw.Write(content); err != nil {
		return fmt.Errorf("write content for %s: %w", name, err)
	}
	return nil
}

// finalizeTarGz closes the tar and gzip writers and returns the buffer content.
func finalizeTarGz(tw *tar.Writer, gw *gzip.Writer, buf *bytes.Buffer) ([]byte, error) {
	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("close tar writer: %w", err)
	}
	if err := gw.Close(); err != nil {
		return nil, fmt.Errorf("close gzip writer: %w", err)
	}
	return buf.Bytes(), nil
}

// Filename returns the archive name of a chain's bundle.
func Filename(chainName string) string {
	return sanitizeName(chainName) + ".tar.gz"
}

// sanitizeName converts a chain name to a valid directory name.
func sanitizeName(name string) string {
	var result strings.Builder
	result.Grow(len(name))
	hasAlphaNum := false

	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			result.WriteRune(r)
			hasAlphaNum = true
		case r == '-' || r == '_':
			result.WriteRune(r)
		case r == ' ':
			result.WriteRune('-')
		}
	}

	if !hasAlphaNum {
		return "orbit-chain"
	}
	return result.String()
}
