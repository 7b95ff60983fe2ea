package policy

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/davidahmann/lendguard/internal/crypto"
)

type LoadedPolicy struct {
	Policy Policy
	Hash   string
	Bytes  []byte
}

// LoadPolicy loads a YAML governance policy and computes its hash from raw bytes.
func LoadPolicy(path string) (LoadedPolicy, error) {
	// #nosec G304 -- path comes from operator-configured policy path.
	data, err := os.ReadFile(path)
	if err != nil {
		return LoadedPolicy{}, err
	}
	return ParsePolicy(data)
}

func ParsePolicy(data []byte) (LoadedPolicy, error) {
	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return LoadedPolicy{}, errors.Wrap(err, "parse policy")
	}
	if err := p.Validate(); err != nil {
		return LoadedPolicy{}, err
	}

	return LoadedPolicy{
		Policy: p,
		Hash:   crypto.DigestWithPrefix(data),
		Bytes:  data,
	}, nil
}

func (p Policy) Validate() error {
	if p.PolicyID == "" {
		return errors.New("policy_id is required")
	}
	if len(p.Ethics.Guidelines) == 0 {
		return errors.New("ethics.guidelines must not be empty")
	}
	if len(p.Regulations) == 0 {
		return errors.New("regulations must not be empty")
	}
	for i, r := range p.Regulations {
		if r.Name == "" {
			return errors.Errorf("regulations[%d].name is required", i)
		}
	}
	if p.Bias.Threshold < 0 {
		return errors.New("bias.threshold must not be negative")
	}
	return nil
}
