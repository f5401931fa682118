// Package config resolves the CLI's global flags through viper's
// flag/env/default precedence chain, the way the teacher centralises
// configuration in one loaded struct rather than threading raw flag
// values through every call site.
package config

import (
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Flags is the resolved global configuration spec.md §6 lists:
// -D/--debug, -d/--display_endpoints, -S/--skip_endpoint_discovery,
// plus a listen-address override that beats the project file's value.
type Flags struct {
	Debug                 bool
	DisplayEndpoints      bool
	SkipEndpointDiscovery bool
	ListenAddr            string
}

// Bind registers the global flags on flagSet and wires them through a
// fresh viper instance so WAVELESS_-prefixed environment variables and
// flags share one precedence order (flag > env > default).
func Bind(flagSet *pflag.FlagSet) *viper.Viper {
	flagSet.BoolP("debug", "D", false, "enable debug logging")
	flagSet.BoolP("display_endpoints", "d", false, "print every resolved endpoint at startup")
	flagSet.BoolP("skip_endpoint_discovery", "S", false, "skip schema discovery during build")
	flagSet.String("addr", "", "override the listen address from the project file")

	v := viper.New()
	v.SetEnvPrefix("waveless")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	v.BindPFlags(flagSet)
	return v
}

func Resolve(v *viper.Viper) Flags {
	return Flags{
		Debug:                 v.GetBool("debug"),
		DisplayEndpoints:      v.GetBool("display_endpoints"),
		SkipEndpointDiscovery: v.GetBool("skip_endpoint_discovery"),
		ListenAddr:            v.GetString("addr"),
	}
}
