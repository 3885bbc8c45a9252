package demo

import (
	"fmt"
	"io/ioutil"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/sethgrid/pester"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/twitter/dtree/common/endpoints"
	dtreeerrors "github.com/twitter/dtree/common/errors"
	dtreelog "github.com/twitter/dtree/common/log"
	"github.com/twitter/dtree/config"
	"github.com/twitter/dtree/dtree"
	"github.com/twitter/dtree/transport"
)

// CLI is the dtree command line.
type CLI struct {
	rootCmd *cobra.Command

	logLevel    string
	logJSON     bool
	logFileLine bool
}

func (c *CLI) Exec() error {
	return c.rootCmd.Execute()
}

// SetArgs overrides the process arguments, for tests.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

func NewCLI() *CLI {
	c := &CLI{}
	c.rootCmd = &cobra.Command{
		Use:           "dtree",
		Short:         "dtree schedules an irregular parallel loop over a tree of nodes",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return c.configureLog(c.logLevel, c.logJSON)
		},
	}
	flags := c.rootCmd.PersistentFlags()
	flags.StringVar(&c.logLevel, "log_level", "info", "log everything at this level and above (error|info|debug)")
	flags.BoolVar(&c.logJSON, "log_json", false, "log in JSON")
	flags.BoolVar(&c.logFileLine, "log_fileline", false, "add the call site to log entries")

	c.addCmd(&localCmd{})
	c.addCmd(&nodeCmd{})
	c.addCmd(&statsCmd{})
	return c
}

func (c *CLI) configureLog(level string, json bool) error {
	if err := dtreelog.Configure(level, json, c.logFileLine); err != nil {
		return dtreeerrors.NewError(err, dtreeerrors.UsageExitCode)
	}
	return nil
}

func (c *CLI) addCmd(cmd command) {
	cobraCmd := cmd.registerFlags()
	cobraCmd.RunE = func(innerCmd *cobra.Command, args []string) error {
		return cmd.run(c, innerCmd, args)
	}
	c.rootCmd.AddCommand(cobraCmd)
}

type command interface {
	registerFlags() *cobra.Command
	run(cli *CLI, cmd *cobra.Command, args []string) error
}

// ExitCode maps a run error to the process exit code.
func ExitCode(err error) dtreeerrors.ExitCode {
	if err == nil {
		return dtreeerrors.SuccessExitCode
	}
	if e, ok := err.(*dtreeerrors.ExitCodeError); ok {
		return e.GetExitCode()
	}
	if errors.Cause(err) == ErrConservation {
		return dtreeerrors.ConservationFailureExitCode
	}
	switch dtree.KindOf(err) {
	case dtree.ConfigurationError:
		return dtreeerrors.ConfigurationFailureExitCode
	case dtree.TransportError:
		return dtreeerrors.TransportFailureExitCode
	case dtree.LogicError:
		return dtreeerrors.LogicFailureExitCode
	}
	return 1
}

func withExitCode(err error) error {
	if err == nil {
		return nil
	}
	return dtreeerrors.NewError(err, ExitCode(err))
}

// local simulates a whole group in memory.
type localCmd struct {
	nodes       int
	tree        config.TreeConfig
	workload    config.WorkloadConfig
	multipliers string
	httpAddr    string
}

func (c *localCmd) registerFlags() *cobra.Command {
	r := &cobra.Command{
		Use:   "local",
		Short: "Simulate a cluster in this process and check every item is processed once",
	}
	defaults := config.DefaultParser()
	f := r.Flags()
	f.IntVar(&c.nodes, "nodes", 7, "number of simulated ranks")
	f.IntVar(&c.tree.FanOut, "fanout", defaults.Tree.FanOut, "children per interior node")
	f.Int64Var(&c.tree.NumWorkItems, "items", 100000, "number of loop items")
	f.IntVar(&c.tree.NumThreads, "threads", defaults.Tree.NumThreads, "worker goroutines per rank")
	f.BoolVar(&c.tree.CanParent, "can_parent", defaults.Tree.CanParent, "let ranks other than 0 be interior nodes")
	f.BoolVar(&c.tree.ParentsWork, "parents_work", defaults.Tree.ParentsWork, "let interior nodes process items")
	f.Float64Var(&c.tree.FirstFraction, "first", defaults.Tree.FirstFraction, "fraction of a supply kept locally")
	f.Float64Var(&c.tree.RestFraction, "rest", defaults.Tree.RestFraction, "fraction of the remainder offered to children")
	f.Int16Var(&c.tree.MinDistribUnit, "min", defaults.Tree.MinDistribUnit, "smallest chunk worth splitting off")
	f.StringVar(&c.multipliers, "multipliers", "", "comma separated relative speed of each rank, cycled (default all 1)")
	f.IntVar(&c.workload.MinCostMicros, "min_cost_us", defaults.Workload.MinCostMicros, "cheapest item in microseconds")
	f.IntVar(&c.workload.MaxCostMicros, "max_cost_us", defaults.Workload.MaxCostMicros, "most expensive item in microseconds")
	f.BoolVar(&c.workload.Skewed, "skewed", false, "make later items more expensive")
	f.Int64Var(&c.workload.Seed, "seed", 0, "item cost seed")
	f.StringVar(&c.httpAddr, "http_addr", "", "serve stats on this address while running")
	return r
}

func (c *localCmd) run(cli *CLI, cmd *cobra.Command, args []string) error {
	mults, err := parseMultipliers(c.multipliers)
	if err != nil {
		return dtreeerrors.NewError(err, dtreeerrors.UsageExitCode)
	}
	report := &config.DefaultReportConfig{Type: "default", HttpAddr: c.httpAddr}
	stat, err := report.Create()
	if err != nil {
		return dtreeerrors.NewError(err, dtreeerrors.UsageExitCode)
	}
	mem := &config.MemoryTransportConfig{Type: "memory", Size: c.nodes}
	trs, err := mem.Create()
	if err != nil {
		return dtreeerrors.NewError(err, dtreeerrors.UsageExitCode)
	}
	tree := c.tree
	runner := &Runner{
		Workload: NewWorkload(c.workload, tree.NumWorkItems),
		Stats:    stat,
		OptionsFor: func(rank int) dtree.Options {
			opts := tree.Options(nil)
			opts.NodeMultiplier = 1
			if len(mults) > 0 {
				opts.NodeMultiplier = mults[rank%len(mults)]
			}
			return opts
		},
	}
	return finish(cmd, runner, trs, tree.NumWorkItems, true)
}

func parseMultipliers(s string) ([]float64, error) {
	if s == "" {
		return nil, nil
	}
	var mults []float64
	for _, part := range strings.Split(s, ",") {
		m, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, errors.Wrapf(err, "bad multiplier %q", part)
		}
		if !(m > 0) {
			return nil, errors.Errorf("multiplier %v must be positive", m)
		}
		mults = append(mults, m)
	}
	return mults, nil
}

func finish(cmd *cobra.Command, runner *Runner, trs []transport.Transport, n int64, verify bool) error {
	report, err := runner.Run(trs)
	if report != nil {
		printReport(cmd, report)
	}
	if err != nil {
		return withExitCode(err)
	}
	if verify {
		if err := report.Verify(n); err != nil {
			return withExitCode(err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "all %d items processed exactly once\n", n)
	}
	return nil
}

func printReport(cmd *cobra.Command, report *Report) {
	out := cmd.OutOrStdout()
	for _, rr := range report.Ranks {
		role := "leaf"
		if rr.IsParent {
			role = "parent"
		}
		fmt.Fprintf(out, "rank %d (%s): %d items in %d chunks, %v, per thread %v\n",
			rr.Rank, role, rr.Items, len(rr.Chunks), rr.Elapsed, rr.Threads)
	}
}

// node runs the ranks described by a config file.
type nodeCmd struct {
	configFlag string
}

func (c *nodeCmd) registerFlags() *cobra.Command {
	r := &cobra.Command{
		Use:   "node",
		Short: "Run the ranks a JSON config assigns to this process",
	}
	r.Flags().StringVar(&c.configFlag, "config", "", "JSON config text, or the name of a .json file")
	return r
}

func (c *nodeCmd) run(cli *CLI, cmd *cobra.Command, args []string) error {
	text, err := config.GetConfigText(c.configFlag)
	if err != nil {
		return dtreeerrors.NewError(err, dtreeerrors.UsageExitCode)
	}
	cfg, err := config.DefaultParser().Parse(text)
	if err != nil {
		return dtreeerrors.NewError(err, dtreeerrors.UsageExitCode)
	}
	if !cli.rootCmd.PersistentFlags().Changed("log_level") {
		if err := cli.configureLog(cfg.Log.Level, cfg.Log.JSON || cli.logJSON); err != nil {
			return err
		}
	}
	stat, err := cfg.Report.Create()
	if err != nil {
		return dtreeerrors.NewError(err, dtreeerrors.UsageExitCode)
	}
	trs, err := cfg.Transport.Create()
	if err != nil {
		return dtreeerrors.NewError(err, dtreeerrors.TransportFailureExitCode)
	}
	runner := &Runner{
		Workload: NewWorkload(cfg.Workload, cfg.Tree.NumWorkItems),
		Stats:    stat,
		OptionsFor: func(int) dtree.Options {
			return cfg.Tree.Options(nil)
		},
	}
	// Conservation can only be checked when the whole group ran here.
	verify := len(trs) > 0 && len(trs) == trs[0].Size()
	return finish(cmd, runner, trs, cfg.Tree.NumWorkItems, verify)
}

// stats fetches the metrics of a running node.
type statsCmd struct {
	addr   string
	pretty bool
	tries  int
}

func (c *statsCmd) registerFlags() *cobra.Command {
	r := &cobra.Command{
		Use:   "stats",
		Short: "Print the metrics served by a running node",
	}
	r.Flags().StringVar(&c.addr, "addr", "localhost:9091", "admin address of the node")
	r.Flags().BoolVar(&c.pretty, "pretty", true, "indent the output")
	r.Flags().IntVar(&c.tries, "tries", 3, "attempts before giving up")
	return r
}

func (c *statsCmd) run(cli *CLI, cmd *cobra.Command, args []string) error {
	client := pester.New()
	client.Backoff = pester.ExponentialBackoff
	client.MaxRetries = c.tries
	client.LogHook = func(e pester.ErrEntry) {
		log.Errorf("Retrying after failed attempt: %+v", e)
	}

	url := fmt.Sprintf("http://%s%s?pretty=%t", c.addr, endpoints.MetricsPath, c.pretty)
	resp, err := client.Get(url)
	if err != nil {
		return dtreeerrors.NewError(errors.Wrapf(err, "fetching %s", url), dtreeerrors.TransportFailureExitCode)
	}
	defer resp.Body.Close()
	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return dtreeerrors.NewError(errors.Wrapf(err, "reading %s", url), dtreeerrors.TransportFailureExitCode)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(body))
	return nil
}
