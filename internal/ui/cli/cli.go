package cli

import "flag"

const versionString = "0.3.0"
const defaultConfigPath = "./lazyresolve.toml"

type cliOptions struct {
	configPath    string
	once          bool
	watch         bool
	tree          bool
	members       bool
	depth         int
	lookup        string
	unresolvedTSV string
	recordsTSV    string
	runs          bool
	inject        string
	verbose       bool
	version       bool
	args          []string
}

func parseOptions(args []string) (cliOptions, error) {
	var opts cliOptions
	fs := flag.NewFlagSet("lazyresolve", flag.ContinueOnError)

	fs.StringVar(&opts.configPath, "config", defaultConfigPath, "Path to config file")
	fs.BoolVar(&opts.once, "once", false, "Build a single session and exit, even when watch.enabled is set")
	fs.BoolVar(&opts.watch, "watch", false, "Keep rebuilding the session as sources change")
	fs.BoolVar(&opts.tree, "tree", false, "Print the package and class tree")
	fs.BoolVar(&opts.members, "members", false, "Include functions, properties and constructors in --tree")
	fs.IntVar(&opts.depth, "depth", 0, "Limit --tree to this depth (0 = unlimited)")
	fs.StringVar(&opts.lookup, "lookup", "", "Resolve a qualified name and print what it denotes")
	fs.StringVar(&opts.unresolvedTSV, "unresolved-tsv", "", "Write unresolved imports as TSV to this path")
	fs.StringVar(&opts.recordsTSV, "records-tsv", "", "Write the persisted records of --lookup as TSV to this path (requires db.enabled)")
	fs.BoolVar(&opts.runs, "runs", false, "List persisted runs and exit (requires db.enabled)")
	fs.StringVar(&opts.inject, "inject", "", "Inject the tree into a markdown file between markers (<file>:<marker>)")
	fs.BoolVar(&opts.verbose, "verbose", false, "Enable verbose logging")
	fs.BoolVar(&opts.version, "version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, err
	}

	opts.args = fs.Args()
	return opts, nil
}
