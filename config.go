package registry

import (
	"fmt"
	"io/ioutil"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

// Config is the configuration instance the rest of the registry should access
// for global configuration values. See RegistryConfig for available config
// members.
var Config RegistryConfig

// ConfigName is the path (can be relative or absolute) to the config file that
// should be read.
var ConfigName string = "registry.yaml"

func init() {
	err := readConfig()
	if err != nil {
		if strings.Contains(err.Error(), "no such file or directory") {
			log.Infof("did not find config file %v, continuing with defaults", ConfigName)
		} else {
			panic(err.Error())
		}
	}
}

// RegistryConfig defines the available global configuration parameters for
// the registry. It reads values straight from the config file (registry.yaml
// by default).
type RegistryConfig struct {
	Registry struct {
		Enabled bool `yaml:"enabled"`

		// Hostname and MachineGUID identify this registry server itself;
		// both are echoed in every JSON response.
		Hostname    string `yaml:"hostname"`
		MachineGUID string `yaml:"machine_guid"`

		// RegistryToAnnounce is the public URL browsers should use to
		// reach this registry. RegistryDomain, when set, is added as the
		// Domain attribute of the second person cookie.
		RegistryToAnnounce string `yaml:"registry_to_announce"`
		RegistryDomain     string `yaml:"registry_domain"`

		// PersonsExpiration is the person cookie lifetime in seconds.
		PersonsExpiration int `yaml:"persons_expiration"`

		// VerifyCookiesRedirects enables the cookie capability probe on
		// access requests when greater than zero.
		VerifyCookiesRedirects int `yaml:"verify_cookies_redirects"`

		MaxURLLength  int `yaml:"max_url_length"`
		MaxNameLength int `yaml:"max_name_length"`

		// JournalPath is the mutation journal file. Empty disables the
		// file journal (Cassandra may still be configured below).
		JournalPath string `yaml:"journal_path"`
	} `yaml:"registry"`

	Cassandra struct {
		// JournalEnabled routes the mutation journal to Cassandra instead
		// of the flat file.
		JournalEnabled    bool     `yaml:"journal_enabled"`
		Hosts             []string `yaml:"hosts"`
		Keyspace          string   `yaml:"keyspace"`
		ReplicationFactor int      `yaml:"replication_factor"`
		Timeout           string   `yaml:"timeout"`
		ProtoVersion      int      `yaml:"proto_version"`
		Port              int      `yaml:"port"`
		NumConns          int      `yaml:"num_conns"`
	} `yaml:"cassandra"`

	Web struct {
		Port int `yaml:"port"`
	} `yaml:"web"`
}

// SetDefaultConfig resets the Config object to default values, regardless of
// what was set by any configuration file.
func SetDefaultConfig() {
	// NOTE: go-yaml has a bug where it does not overwrite sequence values
	// (i.e. lists), it appends to them.
	// See https://github.com/go-yaml/yaml/issues/48
	// Until this is fixed, for any sequence value, in readConfig we have to
	// nil it and then fill in the default value if yaml.Unmarshal did not fill
	// anything in

	Config.Registry.Enabled = true
	Config.Registry.Hostname = "localhost"
	Config.Registry.MachineGUID = ""
	Config.Registry.RegistryToAnnounce = "https://registry.my-netdata.io"
	Config.Registry.RegistryDomain = ""
	Config.Registry.PersonsExpiration = 365 * 24 * 3600
	Config.Registry.VerifyCookiesRedirects = 0
	Config.Registry.MaxURLLength = 1024
	Config.Registry.MaxNameLength = 50
	Config.Registry.JournalPath = ""

	Config.Cassandra.JournalEnabled = false
	Config.Cassandra.Hosts = []string{"localhost"}
	Config.Cassandra.Keyspace = "registry"
	Config.Cassandra.ReplicationFactor = 3
	Config.Cassandra.Timeout = "2s"
	Config.Cassandra.ProtoVersion = 4
	Config.Cassandra.Port = 9042
	Config.Cassandra.NumConns = 2

	Config.Web.Port = 19999
}

// ReadConfigFile sets a new path to find the registry yaml config file and
// forces a reload of the config.
func ReadConfigFile(path string) error {
	ConfigName = path
	return readConfig()
}

// MustReadConfigFile calls ReadConfigFile and panics on error.
func MustReadConfigFile(path string) {
	err := ReadConfigFile(path)
	if err != nil {
		panic(err.Error())
	}
}

func assertConfigInvariants() error {
	var errs []string

	reg := &Config.Registry
	if reg.PersonsExpiration < 1 {
		errs = append(errs, "Registry.PersonsExpiration must be greater than 0")
	}
	if reg.MaxURLLength < 32 {
		errs = append(errs, "Registry.MaxURLLength must be at least 32")
	}
	if reg.MaxNameLength < 1 {
		errs = append(errs, "Registry.MaxNameLength must be greater than 0")
	}
	if reg.MachineGUID != "" && !ValidGUID(reg.MachineGUID) {
		errs = append(errs, fmt.Sprintf("Registry.MachineGUID (%v) is not a valid guid", reg.MachineGUID))
	}

	_, err := time.ParseDuration(Config.Cassandra.Timeout)
	if err != nil {
		errs = append(errs, fmt.Sprintf("Cassandra.Timeout failed to parse: %v", err))
	}

	if Config.Web.Port < 1 || Config.Web.Port > 65535 {
		errs = append(errs, "Web.Port must be a valid tcp port")
	}

	if len(errs) > 0 {
		em := ""
		for _, e := range errs {
			log.Errorf("config error: %v", e)
			em += "\t"
			em += e
			em += "\n"
		}
		return fmt.Errorf("config error:\n%v", em)
	}

	return nil
}

func readConfig() error {
	SetDefaultConfig()

	data, err := ioutil.ReadFile(ConfigName)
	if err != nil {
		return fmt.Errorf("failed to read config file (%v): %v", ConfigName, err)
	}

	// See NOTE in SetDefaultConfig regarding sequence values
	Config.Cassandra.Hosts = []string{}
	err = yaml.Unmarshal(data, &Config)
	if err != nil {
		return fmt.Errorf("failed to unmarshal yaml from config file (%v): %v", ConfigName, err)
	}

	// See NOTE in SetDefaultConfig regarding sequence values
	if len(Config.Cassandra.Hosts) == 0 {
		Config.Cassandra.Hosts = []string{"localhost"}
	}

	err = assertConfigInvariants()
	if err != nil {
		return err
	}

	log.Infof("loaded config file %v", ConfigName)
	return nil
}
