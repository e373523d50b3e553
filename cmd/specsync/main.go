package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/wudi/specsync/internal/changedetect"
	"github.com/wudi/specsync/internal/config"
	"github.com/wudi/specsync/internal/logging"
	"github.com/wudi/specsync/internal/metadata"
	"github.com/wudi/specsync/internal/migration"
	"github.com/wudi/specsync/internal/syncer"
	"github.com/wudi/specsync/internal/version"
)

var (
	buildVersion = "dev"
	buildTime    = "unknown"
)

const usage = `specsync manages the lifecycle of OpenAPI contracts.

Usage: specsync [flags] <command> [args]

Commands:
  init        Initialize a project in the current directory
  status      Show project and contract tracking status
  check       Detect and classify contract changes
  sync        Synchronize generated artifacts with contracts
  version     Create, list and compare contract versions
  matrix      Print the version compatibility matrix
  migrate     Print the migration plan between two versions
`

// engine bundles the wired components for one invocation.
type engine struct {
	cfg      *config.Config
	store    *metadata.Store
	detector *changedetect.Detector
	versions *version.Manager
	planner  *migration.Planner
	syncer   *syncer.Manager
}

func main() {
	root := flag.String("root", ".", "Project root directory")
	configPath := flag.String("config", "", "Path to tool configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if *showVersion {
		fmt.Printf("specsync %s (built %s)\n", buildVersion, buildTime)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	eng, err := wire(*root, *configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start: %v\n", err)
		os.Exit(1)
	}
	defer logging.Sync()

	if err := dispatch(eng, args[0], args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func wire(root, configPath string) (*engine, error) {
	if configPath == "" {
		configPath = filepath.Join(root, ".specsync.yaml")
	}
	cfg, err := config.NewLoader().Load(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	logging.SetGlobal(logger)

	store := metadata.NewStore(root, cfg.StateDir)
	detector := changedetect.NewDetector(store, cfg.SpecsDir, logger)
	versions := version.NewManager(store, detector, cfg.SpecsDir, logger)
	planner := migration.NewPlanner(versions)
	sync := syncer.NewManager(store, detector, versions, planner, cfg.SpecsDir, cfg.ImplDir, logger)

	return &engine{
		cfg:      cfg,
		store:    store,
		detector: detector,
		versions: versions,
		planner:  planner,
		syncer:   sync,
	}, nil
}

func dispatch(eng *engine, command string, args []string) error {
	switch command {
	case "init":
		return runInit(eng, args)
	case "status":
		return runStatus(eng)
	case "check":
		return runCheck(eng)
	case "sync":
		return runSync(eng, args)
	case "version":
		return runVersion(eng, args)
	case "matrix":
		return runMatrix(eng)
	case "migrate":
		return runMigrate(eng, args)
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func runInit(eng *engine, args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	name := fs.String("name", "", "Project name (defaults to directory name)")
	baseURL := fs.String("base-url", "", "API base URL")
	fs.Parse(args)

	cfg, err := eng.store.Initialize(*name, *baseURL)
	if err != nil {
		return err
	}
	fmt.Printf("Initialized project %q in %s\n", cfg.ProjectName, eng.store.Dir())
	return nil
}

func runStatus(eng *engine) error {
	fmt.Printf("Project status: %s\n", eng.store.Status())

	tracking, err := eng.store.LoadTracking()
	if err != nil {
		return err
	}
	fmt.Printf("Tracked contracts: %d\n", len(tracking))
	for _, path := range eng.detector.FindContracts() {
		changed, err := eng.store.HasChanged(path)
		if err != nil {
			return err
		}
		state := "unchanged"
		if changed {
			state = "changed"
		}
		fmt.Printf("  %s: %s\n", path, state)
	}
	return nil
}

func runCheck(eng *engine) error {
	changes := eng.detector.DetectAll()
	if len(changes) == 0 {
		fmt.Println("No changes detected")
		return nil
	}
	paths := make([]string, 0, len(changes))
	for path := range changes {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	for _, path := range paths {
		analysis := changes[path]
		fmt.Printf("%s: %s\n", path, analysis.Summary)
		for _, c := range analysis.Changes {
			marker := " "
			if c.Breaking {
				marker = "!"
			}
			fmt.Printf("  %s %-8s %s\n", marker, c.Kind, c.Description)
		}
	}
	return nil
}

func runSync(eng *engine, args []string) error {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	preview := fs.Bool("preview", false, "Render the plan without applying it")
	force := fs.Bool("force", false, "Apply the plan even when it requires manual review")
	fs.Parse(args)

	plan, err := eng.syncer.Analyze()
	if err != nil {
		return err
	}
	ok, err := eng.syncer.Execute(plan, *preview, *force)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("sync completed with failures; re-run to pick up remaining items")
	}
	return nil
}

func runVersion(eng *engine, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: specsync version <create|list|compare> ...")
	}
	switch args[0] {
	case "create":
		fs := flag.NewFlagSet("version create", flag.ExitOnError)
		bump := fs.String("bump", "auto", "Bump kind: major, minor, patch or auto")
		target := fs.String("target", "", "Explicit target version, e.g. 2.0.0")
		fs.Parse(args[1:])
		if fs.NArg() != 1 {
			return fmt.Errorf("usage: specsync version create [flags] <contract-file>")
		}
		spec, err := eng.versions.CreateVersion(fs.Arg(0), version.Bump(*bump), *target)
		if err != nil {
			return err
		}
		fmt.Printf("Created %s v%s: %s\n", spec.Name, spec.Version, spec.FilePath)
		return nil
	case "list":
		if len(args) != 2 {
			return fmt.Errorf("usage: specsync version list <contract-name>")
		}
		versions, err := eng.versions.VersionsOf(args[1])
		if err != nil {
			return err
		}
		for _, v := range versions {
			fmt.Printf("%s\t%s\n", v.Version, v.FilePath)
		}
		return nil
	case "compare":
		if len(args) != 4 {
			return fmt.Errorf("usage: specsync version compare <contract-name> <from> <to>")
		}
		analysis, err := eng.versions.Compare(args[1], args[2], args[3])
		if err != nil {
			return err
		}
		fmt.Println(analysis.Summary)
		for _, c := range analysis.Changes {
			fmt.Printf("  %-8s %s\n", c.Kind, c.Description)
		}
		return nil
	default:
		return fmt.Errorf("unknown version subcommand %q", args[0])
	}
}

func runMatrix(eng *engine) error {
	matrix, err := eng.versions.CompatibilityMatrix()
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(matrix, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func runMigrate(eng *engine, args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("usage: specsync migrate <contract-name> <from> <to>")
	}
	plan, err := eng.planner.Plan(args[0], args[1], args[2])
	if err != nil {
		return err
	}
	fmt.Printf("Migration %s: v%s -> v%s (effort: %s)\n", args[0], plan.FromVersion, plan.ToVersion, plan.EstimatedEffort)
	for i, step := range plan.MigrationSteps {
		fmt.Printf("  %d. %s\n", i+1, step)
	}
	if plan.RequiresManualIntervention {
		fmt.Println("Manual intervention required")
	}
	return nil
}
