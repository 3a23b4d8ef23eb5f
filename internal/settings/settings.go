/*
Package settings is the configuration layer: a TOML file merged over built-in defaults, with
environment variables merged over both. The file is optional - a missing chimera.toml simply
yields the defaults - but a file that exists and fails to parse is a fatal bootstrap error, as
are an unrecognized environment override and an unknown chain_mode or tor.fallback_protocol.

Environment overrides use the prefix CHIMERA and the separator "__", so

	CHIMERA__SERVER__PORT=9090
	CHIMERA__TOR__ENABLED=false
	CHIMERA__CHAIN_MODE=tor_over_nym

override server.port, tor.enabled and chain_mode respectively. Key lookup is by toml tag and is
case-insensitive on the part of the variable name after the prefix; the CHIMERA__ prefix itself
must be upper case.
*/
package settings

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/thookham/chimera/internal/backend"
)

// ChainMode selects the multi-hop deployment wiring applied at supervisor start.
type ChainMode string

const (
	ChainNone       ChainMode = "none"
	ChainTorOverNym ChainMode = "tor_over_nym"
	ChainNymOverTor ChainMode = "nym_over_tor"
)

const envPrefix = "CHIMERA__"

// Settings is the complete configuration record consumed by the core. Optional values use the
// empty string as "unset".
type Settings struct {
	Server    ServerSettings `toml:"server"`
	ChainMode ChainMode      `toml:"chain_mode"`

	Tor        TorSettings        `toml:"tor"`
	I2P        I2PSettings        `toml:"i2p"`
	Lokinet    LokinetSettings    `toml:"lokinet"`
	Nym        NymSettings        `toml:"nym"`
	IPFS       IPFSSettings       `toml:"ipfs"`
	ZeroNet    ZeroNetSettings    `toml:"zeronet"`
	Freenet    FreenetSettings    `toml:"freenet"`
	RetroShare RetroShareSettings `toml:"retroshare"`
	GNUnet     GNUnetSettings     `toml:"gnunet"`
	Tribler    TriblerSettings    `toml:"tribler"`
}

type ServerSettings struct {
	Host     string `toml:"host"`
	Port     uint16 `toml:"port"`
	LogLevel string `toml:"log_level"`
}

type TorSettings struct {
	Enabled          bool   `toml:"enabled"`
	BinaryPath       string `toml:"binary_path"`
	SocksPort        uint16 `toml:"socks_port"`
	ControlPort      uint16 `toml:"control_port"`
	UpstreamProxy    string `toml:"upstream_proxy"`    // Chained SOCKS5 upstream, e.g. Nym
	FallbackProtocol string `toml:"fallback_protocol"` // Router fallback when unhealthy
}

type I2PSettings struct {
	Enabled       bool   `toml:"enabled"`
	BinaryPath    string `toml:"binary_path"`
	SocksPort     uint16 `toml:"socks_port"`
	HTTPProxyPort uint16 `toml:"http_proxy_port"`
}

type LokinetSettings struct {
	Enabled    bool   `toml:"enabled"`
	BinaryPath string `toml:"binary_path"`
	DNSPort    uint16 `toml:"dns_port"`
	SocksPort  uint16 `toml:"socks_port"`
}

type NymSettings struct {
	Enabled          bool   `toml:"enabled"`
	BinaryPath       string `toml:"binary_path"`
	ClientID         string `toml:"client_id"`
	SocksPort        uint16 `toml:"socks_port"`
	UpstreamProvider string `toml:"upstream_provider"`
}

type IPFSSettings struct {
	Enabled     bool   `toml:"enabled"`
	APIURL      string `toml:"api_url"`
	GatewayPort uint16 `toml:"gateway_port"`
}

type ZeroNetSettings struct {
	Enabled  bool   `toml:"enabled"`
	ProxyURL string `toml:"proxy_url"`
	Port     uint16 `toml:"port"`
}

type FreenetSettings struct {
	Enabled    bool   `toml:"enabled"`
	Host       string `toml:"host"`
	FCPPort    uint16 `toml:"fcp_port"`
	FProxyPort uint16 `toml:"fproxy_port"`
}

type RetroShareSettings struct {
	Enabled  bool   `toml:"enabled"`
	APIURL   string `toml:"api_url"`
	User     string `toml:"user"`
	Password string `toml:"password"`
}

type GNUnetSettings struct {
	Enabled   bool   `toml:"enabled"`
	SocksPort uint16 `toml:"socks_port"`
}

type TriblerSettings struct {
	Enabled bool   `toml:"enabled"`
	APIURL  string `toml:"api_url"`
	APIKey  string `toml:"api_key"`
}

// Defaults returns the built-in configuration: Tor and I2P on, everything else off, ports as the
// upstream projects document them.
func Defaults() *Settings {
	return &Settings{
		Server:    ServerSettings{Host: "127.0.0.1", Port: 9050, LogLevel: "info"},
		ChainMode: ChainNone,

		Tor: TorSettings{
			Enabled: true, BinaryPath: "bin/tor", SocksPort: 9052, ControlPort: 9051,
		},
		I2P: I2PSettings{
			Enabled: true, BinaryPath: "bin/i2pd", SocksPort: 4447, HTTPProxyPort: 4444,
		},
		Lokinet: LokinetSettings{
			BinaryPath: "bin/lokinet", DNSPort: 1053, SocksPort: 1090,
		},
		Nym: NymSettings{
			BinaryPath: "bin/nym-socks5-client", ClientID: "chimera", SocksPort: 1080,
		},
		IPFS: IPFSSettings{
			APIURL: "http://127.0.0.1:5001", GatewayPort: 8080,
		},
		ZeroNet: ZeroNetSettings{
			ProxyURL: "http://127.0.0.1:43110", Port: 43110,
		},
		Freenet: FreenetSettings{
			Host: "127.0.0.1", FCPPort: 9481, FProxyPort: 8888,
		},
		RetroShare: RetroShareSettings{
			APIURL: "http://127.0.0.1:9090",
		},
		GNUnet: GNUnetSettings{
			SocksPort: 2080,
		},
		Tribler: TriblerSettings{
			APIURL: "http://127.0.0.1:8085",
		},
	}
}

// Load builds the effective Settings: defaults, then the TOML file at path (if it exists), then
// environment overrides. Any error here is a ConfigError and fatal to bootstrap.
func Load(path string) (*Settings, error) {
	s := Defaults()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// Absent config file runs on defaults
	case err != nil:
		return nil, fmt.Errorf("settings: %w", err)
	default:
		if err := toml.Unmarshal(data, s); err != nil {
			return nil, fmt.Errorf("settings: %s: %w", path, err)
		}
	}

	if err := s.applyEnvironment(os.Environ()); err != nil {
		return nil, err
	}
	if err := s.validate(); err != nil {
		return nil, err
	}

	return s, nil
}

func (t *Settings) validate() error {
	switch t.ChainMode {
	case ChainNone, ChainTorOverNym, ChainNymOverTor:
	default:
		return fmt.Errorf("settings: unknown chain_mode %q", t.ChainMode)
	}
	if t.Tor.FallbackProtocol != "" {
		if _, ok := backend.Parse(t.Tor.FallbackProtocol); !ok {
			return fmt.Errorf("settings: unknown tor.fallback_protocol %q", t.Tor.FallbackProtocol)
		}
	}

	return nil
}

// EnabledBackends returns the back-ends switched on by this configuration, in supervisor start
// order.
func (t *Settings) EnabledBackends() []backend.Backend {
	flags := map[backend.Backend]bool{
		backend.Tor:        t.Tor.Enabled,
		backend.I2P:        t.I2P.Enabled,
		backend.Nym:        t.Nym.Enabled,
		backend.Lokinet:    t.Lokinet.Enabled,
		backend.IPFS:       t.IPFS.Enabled,
		backend.ZeroNet:    t.ZeroNet.Enabled,
		backend.Freenet:    t.Freenet.Enabled,
		backend.GNUnet:     t.GNUnet.Enabled,
		backend.RetroShare: t.RetroShare.Enabled,
		backend.Tribler:    t.Tribler.Enabled,
	}

	var out []backend.Backend
	for _, b := range backend.All() {
		if flags[b] {
			out = append(out, b)
		}
	}

	return out
}

// applyEnvironment merges CHIMERA__SECTION__KEY variables over the current values. Unknown
// sections or keys are an error: a typo in an override should fail loudly at bootstrap rather
// than run with a silently ignored setting.
func (t *Settings) applyEnvironment(environ []string) error {
	for _, kv := range environ {
		if !strings.HasPrefix(kv, envPrefix) {
			continue
		}
		eq := strings.IndexByte(kv, '=')
		if eq < 0 {
			continue
		}
		name, value := kv[:eq], kv[eq+1:]
		parts := strings.Split(strings.ToLower(strings.TrimPrefix(name, envPrefix)), "__")

		var field reflect.Value
		switch len(parts) {
		case 1: // Top-level scalar, i.e. chain_mode
			field = fieldByTag(reflect.ValueOf(t).Elem(), parts[0])
		case 2:
			section := fieldByTag(reflect.ValueOf(t).Elem(), parts[0])
			if section.IsValid() && section.Kind() == reflect.Struct {
				field = fieldByTag(section, parts[1])
			}
		}
		if !field.IsValid() {
			return fmt.Errorf("settings: unrecognized environment override %s", name)
		}
		if err := setField(field, value); err != nil {
			return fmt.Errorf("settings: %s: %w", name, err)
		}
	}

	return nil
}

func fieldByTag(structVal reflect.Value, tag string) reflect.Value {
	st := structVal.Type()
	for i := 0; i < st.NumField(); i++ {
		if st.Field(i).Tag.Get("toml") == tag {
			return structVal.Field(i)
		}
	}

	return reflect.Value{}
}

func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Uint16:
		n, err := strconv.ParseUint(value, 10, 16)
		if err != nil {
			return err
		}
		field.SetUint(n)
	default:
		return fmt.Errorf("unsupported override kind %s", field.Kind())
	}

	return nil
}
