package registry

import (
	"path"
	"regexp"
	"testing"
)

func TestConfigDefaults(t *testing.T) {
	defer SetDefaultConfig()

	Config.Registry.Hostname = "something-else"
	Config.Registry.PersonsExpiration = 1
	SetDefaultConfig()

	if Config.Registry.Hostname != "localhost" {
		t.Errorf("Failed to reset default hostname, got %v", Config.Registry.Hostname)
	}
	if Config.Registry.PersonsExpiration != 365*24*3600 {
		t.Errorf("Failed to reset default persons_expiration, got %v", Config.Registry.PersonsExpiration)
	}
	if !Config.Registry.Enabled {
		t.Errorf("Expected registry enabled by default")
	}
}

func TestConfigLoading(t *testing.T) {
	defer SetDefaultConfig()

	err := ReadConfigFile(path.Join("helpers", "test-registry.yaml"))
	if err != nil {
		t.Fatalf("Failed to read test config: %v", err)
	}
	if Config.Registry.Hostname != "test-host" {
		t.Errorf("Failed to set hostname via yaml, got %v", Config.Registry.Hostname)
	}
	if Config.Registry.MachineGUID != "aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee" {
		t.Errorf("Failed to set machine_guid via yaml, got %v", Config.Registry.MachineGUID)
	}
	if Config.Cassandra.Keyspace != "registry_test" {
		t.Errorf("Failed to set cassandra keyspace via yaml, got %v", Config.Cassandra.Keyspace)
	}
}

type configTestCase struct {
	file     string
	expected *regexp.Regexp
}

var configTestCases = []configTestCase{
	{
		"does-not-exist.yaml",
		regexp.MustCompile("failed to read config file .*no such file or directory"),
	},
}

func TestConfigLoadingBadFiles(t *testing.T) {
	defer SetDefaultConfig()

	for _, c := range configTestCases {
		err := ReadConfigFile(path.Join("helpers", c.file))
		if err == nil {
			t.Errorf("Expected an error trying to read %v but did not get one", c.file)
		} else if !c.expected.MatchString(err.Error()) {
			t.Errorf("Reading config %v, expected match: %v\nBut got: %v", c.file, c.expected, err)
		}
	}
}

func TestConfigInvariants(t *testing.T) {
	defer SetDefaultConfig()

	SetDefaultConfig()
	Config.Registry.MachineGUID = "not-a-guid"
	if err := assertConfigInvariants(); err == nil {
		t.Errorf("Expected invalid machine_guid to be rejected")
	}

	SetDefaultConfig()
	Config.Registry.PersonsExpiration = 0
	if err := assertConfigInvariants(); err == nil {
		t.Errorf("Expected zero persons_expiration to be rejected")
	}

	SetDefaultConfig()
	Config.Cassandra.Timeout = "bogus"
	if err := assertConfigInvariants(); err == nil {
		t.Errorf("Expected unparseable cassandra timeout to be rejected")
	}
}
