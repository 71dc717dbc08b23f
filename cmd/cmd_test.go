package cmd

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/netdata/registry"
	"github.com/netdata/registry/helpers"
)

func init() {
	helpers.LoadTestConfig("test-registry.yaml")
}

func TestSchemaCommand(t *testing.T) {
	orig := os.Args
	defer func() {
		os.Args = orig
		helpers.LoadTestConfig("test-registry.yaml")
	}()

	out := filepath.Join(t.TempDir(), "test.cql")
	os.Args = []string{os.Args[0], "schema", "--out=" + out}
	Execute()

	f, err := ioutil.ReadFile(out)
	if err != nil {
		t.Fatalf("Failed to read %v: %v", out, err)
	}
	if !strings.HasPrefix(string(f), "-- The schema file for the registry journal") {
		t.Fatalf("test.cql has unexpected contents: %s", f)
	}
	if !strings.Contains(string(f), "registry_test.registry_log") {
		t.Errorf("Expected the configured keyspace in the schema, got: %s", f)
	}
}

func TestServeCommand(t *testing.T) {
	orig := os.Args
	defer func() {
		os.Args = orig
		helpers.LoadTestConfig("test-registry.yaml")
	}()

	dir := t.TempDir()
	journalPath := filepath.Join(dir, "registry.log")
	configPath := filepath.Join(dir, "registry.yaml")
	content := "registry:\n" +
		"  machine_guid: aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee\n" +
		"  journal_path: " + journalPath + "\n" +
		"web:\n" +
		"  port: 42099\n"
	if err := ioutil.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	os.Args = []string{os.Args[0], "serve", "--config=" + configPath}
	go func() {
		time.Sleep(100 * time.Millisecond)
		syscall.Kill(os.Getpid(), syscall.SIGINT)
	}()
	Execute()

	if registry.Config.Registry.JournalPath != journalPath {
		t.Errorf("Failed to set journal_path via yaml, got %v",
			registry.Config.Registry.JournalPath)
	}
	if _, err := os.Stat(journalPath); err != nil {
		t.Errorf("Expected serve to create the journal file: %v", err)
	}
}
