// Package verifier checks that a saved HPYLM round-trips through
// Save/Load without losing or corrupting any seated customer.
package verifier

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/dbsmedya/hpylm-hmm/internal/logger"
	"github.com/dbsmedya/hpylm-hmm/internal/pyor"
)

// VerificationMethod selects how two models are compared.
type VerificationMethod string

const (
	// MethodCount compares node/customer/table counts (fast).
	MethodCount VerificationMethod = "count"
	// MethodSHA256 compares a hash of the full serialized byte stream
	// (slower, catches any bit-level divergence).
	MethodSHA256 VerificationMethod = "sha256"
	// MethodSkip skips verification entirely.
	MethodSkip VerificationMethod = "skip"
)

// VerifyResult holds the outcome of verifying one model.
type VerifyResult struct {
	Name          string
	Method        VerificationMethod
	SourceCount   int64
	ReloadedCount int64
	SourceHash    string
	ReloadedHash  string
	Match         bool
	ErrorMessage  string
}

// VerifyStats summarizes verification across a whole tagset.Set (the
// pos model plus one word model per tag).
type VerifyStats struct {
	ModelsVerified int
	ModelsPassed   int
	ModelsFailed   int
	TotalCustomers int64
	Method         VerificationMethod
}

// ModelVerifier checks round-trip fidelity of saved HPYLM state by
// reloading it and comparing against the in-memory original.
//
// Grounded on internal/verifier/verifier.go's Verifier: row-count
// comparison becomes customer/table/node-count comparison, per-row
// SHA256 hashing becomes a SHA256 of the serialized model bytes
// (directly exercising Testable Property P6), and the same
// count/sha256/skip method selection is kept.
type ModelVerifier struct {
	method VerificationMethod
	logger *logger.Logger
}

// NewModelVerifier creates a ModelVerifier using the given method,
// defaulting to MethodCount if method is empty.
func NewModelVerifier(method VerificationMethod, log *logger.Logger) *ModelVerifier {
	if log == nil {
		log = logger.NewDefault()
	}
	if method == "" {
		method = MethodCount
	}
	return &ModelVerifier{method: method, logger: log}
}

// VerifyCounts compares node/customer/table counts between an
// in-memory model and a path it was (or should have been) saved to.
func (v *ModelVerifier) VerifyCounts(name string, original *pyor.HPYLM, path string) (*VerifyResult, error) {
	reloaded, err := pyor.Load(path)
	if err != nil {
		return nil, fmt.Errorf("verifier: reloading %q: %w", path, err)
	}

	sourceCount := int64(original.GetNumCustomers())
	reloadedCount := int64(reloaded.GetNumCustomers())
	result := &VerifyResult{
		Name:          name,
		Method:        MethodCount,
		SourceCount:   sourceCount,
		ReloadedCount: reloadedCount,
		Match:         sourceCount == reloadedCount && original.GetNumTables() == reloaded.GetNumTables() && original.GetNumNodes() == reloaded.GetNumNodes(),
	}
	if !result.Match {
		result.ErrorMessage = fmt.Sprintf(
			"count mismatch for %q: customers %d/%d, tables %d/%d, nodes %d/%d",
			name, sourceCount, reloadedCount, original.GetNumTables(), reloaded.GetNumTables(), original.GetNumNodes(), reloaded.GetNumNodes(),
		)
	}
	return result, nil
}

// VerifyHash re-serializes original to a temporary file beside path
// (path + ".verify.tmp", removed afterwards) and compares its SHA-256
// against the bytes already on disk at path, catching any divergence
// Save introduces.
func (v *ModelVerifier) VerifyHash(name string, original *pyor.HPYLM, path string) (*VerifyResult, error) {
	sourceHash, err := hashModel(original, path+".verify.tmp")
	if err != nil {
		return nil, fmt.Errorf("verifier: hashing in-memory model %q: %w", name, err)
	}
	reloadedHash, err := hashExistingFile(path)
	if err != nil {
		return nil, fmt.Errorf("verifier: hashing saved model %q: %w", name, err)
	}

	result := &VerifyResult{
		Name:         name,
		Method:       MethodSHA256,
		SourceHash:   sourceHash,
		ReloadedHash: reloadedHash,
		Match:        sourceHash == reloadedHash,
	}
	if !result.Match {
		result.ErrorMessage = fmt.Sprintf("hash mismatch for %q: source=%s saved=%s", name, sourceHash[:16], reloadedHash[:16])
	}
	return result, nil
}

// Verify runs the configured method (VerifyCounts, VerifyHash, or a
// no-op for MethodSkip) for one named model and accumulates stats.
func (v *ModelVerifier) Verify(name string, original *pyor.HPYLM, path string, stats *VerifyStats) error {
	if v.method == MethodSkip {
		v.logger.Info("verification SKIPPED (method=skip)")
		stats.Method = MethodSkip
		return nil
	}

	var result *VerifyResult
	var err error
	switch v.method {
	case MethodCount:
		result, err = v.VerifyCounts(name, original, path)
	case MethodSHA256:
		result, err = v.VerifyHash(name, original, path)
	default:
		return fmt.Errorf("verifier: unsupported method %q", v.method)
	}
	if err != nil {
		return fmt.Errorf("verifier: verifying %q: %w", name, err)
	}

	stats.ModelsVerified++
	stats.TotalCustomers += result.SourceCount
	stats.Method = v.method

	if result.Match {
		stats.ModelsPassed++
		v.logger.Debugf("verification PASSED for %q", name)
		return nil
	}

	stats.ModelsFailed++
	v.logger.Errorf("verification FAILED for %q: %s", name, result.ErrorMessage)
	return fmt.Errorf("verification mismatch for %q: %s", name, result.ErrorMessage)
}

func hashModel(h *pyor.HPYLM, tmpPath string) (string, error) {
	if err := h.Save(tmpPath); err != nil {
		return "", err
	}
	defer os.Remove(tmpPath)
	return hashExistingFile(tmpPath)
}

func hashExistingFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// SetLogger sets a custom logger for the verifier.
func (v *ModelVerifier) SetLogger(log *logger.Logger) {
	v.logger = log
}

// GetMethod returns the configured verification method.
func (v *ModelVerifier) GetMethod() VerificationMethod {
	return v.method
}
