package cmd

import (
	"fmt"

	"github.com/spf13/pflag"

	"keyfort/internal/kdf"
)

// kdfProfileValue is a pflag.Value selecting an Argon2id cost profile by
// name.
type kdfProfileValue struct {
	name   string
	params kdf.Params
}

var _ pflag.Value = (*kdfProfileValue)(nil)

func newKDFProfileValue() *kdfProfileValue {
	return &kdfProfileValue{name: "default", params: kdf.DefaultParams()}
}

func (v *kdfProfileValue) String() string {
	return v.name
}

func (v *kdfProfileValue) Set(s string) error {
	switch s {
	case "default":
		v.params = kdf.DefaultParams()
	case "paranoid":
		v.params = kdf.ParanoidParams()
	default:
		return fmt.Errorf("unknown KDF profile %q (valid: default, paranoid)", s)
	}
	v.name = s
	return nil
}

func (v *kdfProfileValue) Type() string {
	return "profile"
}
