package tokensmith

import (
	"io"

	"gopkg.in/yaml.v3"

	"github.com/yacobolo/tokensmith/internal/tokens"
)

// yamlToken is the YAML export shape of one token
type yamlToken struct {
	Value        string   `yaml:"value"`
	Ref          string   `yaml:"ref,omitempty"`
	Category     string   `yaml:"category"`
	Confidence   string   `yaml:"confidence"`
	Reason       string   `yaml:"reason,omitempty"`
	WouldConfirm string   `yaml:"would_confirm,omitempty"`
	Evidence     []string `yaml:"evidence,omitempty,flow"`
}

type yamlOutput struct {
	RunID     string              `yaml:"run_id"`
	Strategy  string              `yaml:"strategy"`
	Primitive *yaml.Node          `yaml:"primitive"`
	Semantic  *yaml.Node          `yaml:"semantic"`
	Component *yaml.Node          `yaml:"component"`
	Limits    []map[string]string `yaml:"limits"`
}

// WriteYAML writes the token set and limits as YAML. Token maps keep tier
// order rather than being sorted by key.
func WriteYAML(w io.Writer, res *Result) error {
	out := yamlOutput{
		RunID:    res.RunID,
		Strategy: string(res.Emission.Strategy),
	}
	var err error
	if out.Primitive, err = tokenMap(res.Tokens.Primitive, false); err != nil {
		return err
	}
	if out.Semantic, err = tokenMap(res.Tokens.Semantic, true); err != nil {
		return err
	}
	if out.Component, err = tokenMap(res.Tokens.Component, true); err != nil {
		return err
	}
	for _, l := range res.Journal.Limits {
		out.Limits = append(out.Limits, map[string]string{
			"kind":    string(l.Kind),
			"subject": l.Subject,
			"reason":  l.Reason,
		})
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return err
	}
	return enc.Close()
}

// tokenMap builds an ordered mapping node id -> token
func tokenMap(list []tokens.Token, withRef bool) (*yaml.Node, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, t := range list {
		yt := yamlToken{
			Value:        t.Value,
			Category:     string(t.Category),
			Confidence:   string(t.Confidence),
			Reason:       t.Reason,
			WouldConfirm: t.WouldConfirm,
			Evidence:     t.Evidence,
		}
		if withRef {
			yt.Ref = t.ValueRef
		}
		var value yaml.Node
		if err := value.Encode(yt); err != nil {
			return nil, err
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: t.ID},
			&value,
		)
	}
	return node, nil
}
