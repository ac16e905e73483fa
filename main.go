// Command imgbuild is the CLI front end for the session attachable: it
// parses build arguments, assembles a session.Config and build.Options,
// and drives one build against a remote daemon. Argument parsing,
// request construction, and progress rendering are the out-of-scope
// collaborators named in spec.md §1; this file is the thin seam between
// them and the session/build core.
package main

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"
	"strings"

	"github.com/docker/docker/client"
	"github.com/go-errors/errors"
	"github.com/gookit/color"
	"github.com/integrii/flaggy"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/imgbuild/imgbuild/pkg/build"
	"github.com/imgbuild/imgbuild/pkg/config"
	applog "github.com/imgbuild/imgbuild/pkg/log"
	"github.com/imgbuild/imgbuild/pkg/progress"
	"github.com/imgbuild/imgbuild/pkg/session"
	"github.com/imgbuild/imgbuild/pkg/session/auth"
)

const defaultVersion = "unversioned"

var (
	commit  string
	version = defaultVersion
	date    string

	// common flags, shared across the local/github subcommands
	addr             string
	tags             []string
	buildArgs        []string
	target           string
	platform         string
	registryHost     string
	registryUser     string
	registryPassword string
	noCache          bool
	jsonOutput       bool
	debuggingFlag    bool
	ignorePatterns   []string

	// local subcommand
	contextDir string
	dockerfile string

	// github subcommand
	gitRepo  string
	gitRef   string
	gitToken string
)

func main() {
	updateBuildInfo()

	flaggy.SetName("imgbuild")
	flaggy.SetDescription("Client-side build-session attachable for a container image build daemon")
	flaggy.SetVersion(fmt.Sprintf("%s (%s)", version, commit))
	flaggy.Bool(&debuggingFlag, "d", "debug", "enable debug logging")

	localCmd := flaggy.NewSubcommand("local")
	localCmd.Description = "Build from a local context directory"
	attachCommonFlags(localCmd)
	localCmd.String(&contextDir, "", "context", "local build context directory (default: current directory)")
	localCmd.String(&dockerfile, "f", "dockerfile", "path to the Dockerfile, relative to the context")

	githubCmd := flaggy.NewSubcommand("github")
	githubCmd.Description = "Build from a git/GitHub context"
	attachCommonFlags(githubCmd)
	githubCmd.String(&gitRepo, "", "repo", "git repository URL")
	githubCmd.String(&gitRef, "", "ref", "git ref (branch, tag, or commit)")
	githubCmd.String(&gitToken, "", "token", "access token for a private repository")

	healthCmd := flaggy.NewSubcommand("health")
	healthCmd.Description = "Ping the container engine and exit"
	healthCmd.String(&addr, "a", "addr", "build daemon endpoint (unix://, tcp://, ssh://)")

	flaggy.AttachSubcommand(localCmd, 1)
	flaggy.AttachSubcommand(githubCmd, 1)
	flaggy.AttachSubcommand(healthCmd, 1)
	flaggy.Parse()

	appConfig, err := config.NewAppConfig("imgbuild", version, commit, date, "source", debuggingFlag)
	if err != nil {
		fatal(err)
	}
	logger := applog.NewLogger(appConfig)

	ctx := context.Background()

	switch {
	case healthCmd.Used:
		err = runHealth(ctx, resolveAddr(appConfig))
	case githubCmd.Used:
		err = runBuild(ctx, appConfig, logger, githubOptions())
	case localCmd.Used:
		var opts build.Options
		opts, err = localOptions(appConfig)
		if err == nil {
			err = runBuild(ctx, appConfig, logger, opts)
		}
	default:
		flaggy.ShowHelpAndExit("a subcommand is required")
		return
	}

	if err != nil {
		fatal(err)
	}
}

func attachCommonFlags(sc *flaggy.Subcommand) {
	sc.String(&addr, "a", "addr", "build daemon endpoint (unix://, tcp://, ssh://)")
	sc.StringSlice(&tags, "t", "tag", "image tag to push (repeatable)")
	sc.StringSlice(&buildArgs, "", "build-arg", "build-time variable key=value (repeatable)")
	sc.String(&target, "", "target", "target build stage")
	sc.String(&platform, "", "platform", "target platform(s)")
	sc.String(&registryHost, "", "registry-host", "registry host pattern to authenticate against")
	sc.String(&registryUser, "", "registry-user", "registry username")
	sc.String(&registryPassword, "", "registry-password", "registry password")
	sc.Bool(&noCache, "", "no-cache", "disable build cache")
	sc.Bool(&jsonOutput, "", "json", "render progress as newline-delimited JSON")
	sc.StringSlice(&ignorePatterns, "", "ignore", "dockerignore-style exclude pattern, repeatable (default: read .dockerignore)")
}

func resolveAddr(appConfig *config.AppConfig) string {
	if addr != "" {
		return addr
	}
	return appConfig.UserConfig.Daemon.Addr
}

func localOptions(appConfig *config.AppConfig) (build.Options, error) {
	dir := contextDir
	if dir == "" {
		dir, _ = os.Getwd()
	}

	exclude := ignorePatterns
	if len(exclude) == 0 {
		exclude = appConfig.UserConfig.Build.Ignore
	}
	if len(exclude) == 0 {
		fromFile, err := build.LoadDockerignore(dir)
		if err != nil {
			return build.Options{}, fmt.Errorf("read .dockerignore: %w", err)
		}
		exclude = fromFile
	}

	return build.Options{
		ContextDir:       dir,
		Dockerfile:       dockerfile,
		Target:           target,
		Platform:         platform,
		BuildArgs:        parseBuildArgs(buildArgs),
		NoCache:          noCache,
		ImageResolveMode: "default",
		Tags:             tags,
		ExcludePatterns:  exclude,
	}, nil
}

func githubOptions() build.Options {
	return build.Options{
		Git: &build.GitSource{
			RepoURL: gitRepo,
			Token:   gitToken,
			Ref:     gitRef,
		},
		Target:           target,
		Platform:         platform,
		BuildArgs:        parseBuildArgs(buildArgs),
		NoCache:          noCache,
		ImageResolveMode: "default",
		Tags:             tags,
	}
}

func parseBuildArgs(raw []string) map[string]string {
	if len(raw) == 0 {
		return nil
	}
	out := make(map[string]string, len(raw))
	for _, kv := range raw {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		out[k] = v
	}
	return out
}

func runBuild(ctx context.Context, appConfig *config.AppConfig, logger *logrus.Entry, opts build.Options) error {
	registries := appConfig.UserConfig.Registries
	if registryHost != "" {
		registries = append(registries, config.RegistryConfig{HostPattern: registryHost, Username: registryUser, Password: registryPassword})
	}

	credentials := lo.Map(registries, func(r config.RegistryConfig, _ int) auth.RegistryCredential {
		return auth.RegistryCredential{Host: r.HostPattern, Username: r.Username, Password: r.Password}
	})

	secrets, err := loadSecrets(appConfig.UserConfig.Secrets)
	if err != nil {
		return err
	}

	sessionCfg := session.Config{
		ContextRoot:     opts.ContextDir,
		ExcludePatterns: opts.ExcludePatterns,
		Registries:      credentials,
		Secrets:         secrets,
	}

	var handler progress.Handler
	if jsonOutput {
		handler = progress.NewJSON(os.Stdout)
	} else {
		handler = progress.NewConsole(os.Stdout)
	}

	driver := build.NewDriver(resolveAddr(appConfig))
	result, err := driver.Run(ctx, opts, sessionCfg, handler)
	if err != nil {
		logger.Error(err)
		return err
	}

	printBuildSummary(result)
	return nil
}

// printBuildSummary renders the final one-line result with gookit/color,
// the teacher's richer-styling color package, as distinct from
// progress.Console's plain fatih/color progress lines.
func printBuildSummary(result *build.Result) {
	if digest, ok := result.ExporterResponse["containerimage.digest"]; ok {
		color.Success.Printf("built: %s\n", digest)
		return
	}
	color.Info.Println("build complete")
}

func loadSecrets(entries []config.SecretConfig) (map[string][]byte, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	out := make(map[string][]byte, len(entries))
	for _, e := range entries {
		if e.FilePath != "" {
			data, err := os.ReadFile(e.FilePath)
			if err != nil {
				return nil, fmt.Errorf("read secret %q: %w", e.ID, err)
			}
			out[e.ID] = data
			continue
		}
		out[e.ID] = []byte(e.Value)
	}
	return out, nil
}

func runHealth(ctx context.Context, addr string) error {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return fmt.Errorf("health: build docker client: %w", err)
	}
	defer cli.Close()

	if _, err := cli.Ping(ctx); err != nil {
		return fmt.Errorf("health: ping %s: %w", addr, err)
	}
	fmt.Println("ok")
	return nil
}

func fatal(err error) {
	newErr := errors.Wrap(err, 0)
	fmt.Fprintln(os.Stderr, newErr.ErrorStack())
	os.Exit(1)
}

func updateBuildInfo() {
	if version != defaultVersion {
		return
	}
	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	if revision, ok := lo.Find(buildInfo.Settings, func(s debug.BuildSetting) bool { return s.Key == "vcs.revision" }); ok {
		commit = revision.Value
		version = safeTruncate(revision.Value, 7)
	}
	if t, ok := lo.Find(buildInfo.Settings, func(s debug.BuildSetting) bool { return s.Key == "vcs.time" }); ok {
		date = t.Value
	}
}

func safeTruncate(s string, limit int) string {
	if len(s) > limit {
		return s[:limit]
	}
	return s
}
