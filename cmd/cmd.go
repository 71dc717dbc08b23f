/*
Package cmd provides the registry CLI.

This package makes it easy to create custom registry binaries that use their
own Journal implementation. A daemon that selects the journal from the config
file requires simply:

	func main() {
		cmd.Execute()
	}

To create your own binary that uses the registry's flags but has its own
journal:

	func main() {
		cmd.Journal(NewMyJournal())
		cmd.Execute()
	}

cmd.Execute() blocks until the program has completed (usually by being
shutdown gracefully via SIGINT).
*/
package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/juju/loggo/v2"
	"github.com/spf13/cobra"

	"github.com/netdata/registry"
	"github.com/netdata/registry/api"
	"github.com/netdata/registry/cassandra"
)

var log = loggo.GetLogger("registry.cmd")

// Journal sets the global journal for this process, overriding the
// config-driven selection.
func Journal(j registry.Journal) {
	commander.Journal = j
}

// Execute will run the command specified by the command line
func Execute() {
	commander.Execute()
}

var commander struct {
	*cobra.Command
	Journal registry.Journal
}

// config is potentially set by CLI below
var config string

func initCommand() {
	if config != "" {
		if err := registry.ReadConfigFile(config); err != nil {
			panic(err.Error())
		}
	}
}

func fatalf(format string, args ...interface{}) {
	fmt.Printf(format, args...)
	fmt.Println()
	os.Exit(1)
}

// openJournal picks the journal per config (unless one was set with
// Journal), replays its history into reg, and returns it ready for
// appending. Returns nil if no journal is configured.
func openJournal(reg *registry.Registry) registry.Journal {
	if commander.Journal != nil {
		return commander.Journal
	}

	if registry.Config.Cassandra.JournalEnabled {
		j, err := cassandra.NewJournal()
		if err != nil {
			fatalf("Failed to open cassandra journal: %v", err)
		}
		n, err := j.LoadRecords(reg.Apply)
		if err != nil {
			fatalf("Failed to replay cassandra journal: %v", err)
		}
		log.Infof("replayed %d journal records from cassandra", n)
		return j
	}

	path := registry.Config.Registry.JournalPath
	if path == "" {
		log.Warningf("no journal configured; registry state will not survive restarts")
		return nil
	}

	if _, err := registry.LoadFileJournal(path, reg); err != nil {
		fatalf("Failed to replay journal %v: %v", path, err)
	}
	if err := registry.CompactFileJournal(path, reg); err != nil {
		fatalf("Failed to compact journal %v: %v", path, err)
	}
	j, err := registry.NewFileJournal(path)
	if err != nil {
		fatalf("Failed to open journal %v: %v", path, err)
	}
	return j
}

var serveCommand = &cobra.Command{
	Use:   "serve",
	Short: "Start the registry server",
	Run: func(cmd *cobra.Command, args []string) {
		initCommand()

		if registry.Config.Registry.MachineGUID == "" {
			registry.Config.Registry.MachineGUID = registry.GenerateGUID()
			log.Warningf("no machine_guid configured, using transient guid %v",
				registry.Config.Registry.MachineGUID)
		}

		reg := registry.New()
		j := openJournal(reg)
		if j != nil {
			reg.SetJournal(j)
		}

		router := mux.NewRouter()
		for _, route := range api.NewServer(reg).Routes() {
			router.HandleFunc(route.Path, route.Controller)
		}

		addr := fmt.Sprintf(":%d", registry.Config.Web.Port)
		srv := &http.Server{Addr: addr, Handler: router}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				fatalf("Failed to serve on %v: %v", addr, err)
			}
		}()
		log.Infof("registry listening on %v", addr)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		log.Infof("received signal %v; shutting down", sig)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Errorf("http shutdown: %v", err)
		}
		if j != nil {
			if err := j.Close(); err != nil {
				log.Errorf("journal close: %v", err)
			}
		}
	},
}

func init() {
	commander.Command = &cobra.Command{
		Use: "registryd",
	}
	commander.PersistentFlags().StringVarP(&config,
		"config", "c", "", "path to a config file to load")
	commander.AddCommand(serveCommand)

	var outfile string
	schemaCommand := &cobra.Command{
		Use:   "schema",
		Short: "output the registry journal schema",
		Long: `Schema prints the cassandra journal schema, substituting
schema-relevant configuration items (ex. keyspace, replication factor).
Useful for something like:
    $ <edit registry.yaml as desired>
    $ registryd schema -o schema.cql
    $ <edit schema.cql further as desired>
    $ cqlsh -f schema.cql
`,
		Run: func(cmd *cobra.Command, args []string) {
			initCommand()
			if outfile == "" {
				fatalf("An output file is needed to execute; add with --out/-o")
			}

			out, err := os.Create(outfile)
			if err != nil {
				panic(err.Error())
			}
			defer out.Close()

			fmt.Fprint(out, cassandra.GetSchema())
		},
	}
	schemaCommand.Flags().StringVarP(&outfile, "out", "o", "", "File to write output to")
	commander.AddCommand(schemaCommand)
}
