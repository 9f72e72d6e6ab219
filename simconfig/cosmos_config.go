package simconfig

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"holodeck1/cosmos"
)

// CosmosConfig is the server/client handshake unit: an ordered list of
// component type names and an ordered list of synchro names, delimited by
// "|" (spec "Per-cosmos configuration"). Two configs are equal when both
// component lists match pairwise by index and both synchro lists match as
// sets — a client may register its synchros in a different order than the
// server without failing the handshake, but its component layout must be
// identical index-for-index since that layout is exactly what the wire
// codec's descending/ascending signature walk depends on.
type CosmosConfig struct {
	Components []string `yaml:"components"`
	Synchros   []string `yaml:"synchros"`
}

// FromCosmos captures c's current component and synchro registration order
// as a CosmosConfig, for advertising to a connecting peer.
func FromCosmos(c *cosmos.Cosmos) CosmosConfig {
	synchros := c.Stator.Synchros.All()
	names := make([]string, len(synchros))
	for i, s := range synchros {
		names[i] = s.Name
	}
	return CosmosConfig{
		Components: c.Stator.Components.TypeNames(),
		Synchros:   names,
	}
}

// String renders cc as a "|"-delimited components segment and synchros
// segment, e.g. "transform|body||physics|behavior".
func (cc CosmosConfig) String() string {
	return strings.Join(cc.Components, "|") + "||" + strings.Join(cc.Synchros, "|")
}

// ParseCosmosConfig parses the format String produces.
func ParseCosmosConfig(s string) CosmosConfig {
	segments := strings.SplitN(s, "||", 2)
	cc := CosmosConfig{}
	if len(segments) > 0 && segments[0] != "" {
		cc.Components = strings.Split(segments[0], "|")
	}
	if len(segments) > 1 && segments[1] != "" {
		cc.Synchros = strings.Split(segments[1], "|")
	}
	return cc
}

// Equal implements the spec's comparison rule: components compare pairwise
// by index, synchros compare as a set.
func (cc CosmosConfig) Equal(other CosmosConfig) bool {
	if len(cc.Components) != len(other.Components) {
		return false
	}
	for i := range cc.Components {
		if cc.Components[i] != other.Components[i] {
			return false
		}
	}

	if len(cc.Synchros) != len(other.Synchros) {
		return false
	}
	want := make(map[string]bool, len(cc.Synchros))
	for _, name := range cc.Synchros {
		want[name] = true
	}
	for _, name := range other.Synchros {
		if !want[name] {
			return false
		}
	}
	return true
}

// LoadCosmosConfigFile reads a CosmosConfig fixture from a YAML file, for
// callers that want a fixed handshake config without standing up a live
// cosmos.
func LoadCosmosConfigFile(path string) (CosmosConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return CosmosConfig{}, err
	}
	var cc CosmosConfig
	if err := yaml.Unmarshal(raw, &cc); err != nil {
		return CosmosConfig{}, err
	}
	return cc, nil
}

// SaveCosmosConfigFile writes cc to path as YAML.
func SaveCosmosConfigFile(path string, cc CosmosConfig) error {
	raw, err := yaml.Marshal(cc)
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}
