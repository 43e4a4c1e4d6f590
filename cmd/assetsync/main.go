// Command assetsync mirrors an asset directory into the blob store and
// back. Push before deploying so store-backed manifest entries see the
// new content; pull to reproduce the store on a fresh checkout.
//
//	assetsync push [--prefix data/] [--prune] [--dry-run]
//	assetsync pull [--prefix data/] [--dry-run]
//	assetsync ls [--prefix data/]
package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/riftforge/assets/internal/config"
	"github.com/riftforge/assets/internal/persist"
	"github.com/riftforge/assets/internal/sync"
)

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: assetsync <push|pull|ls> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "  push   upload changed local assets to the blob store")
	fmt.Fprintln(os.Stderr, "  pull   download changed blobs into the asset root")
	fmt.Fprintln(os.Stderr, "  ls     list blobs in the store")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "flags:")
	fmt.Fprintln(os.Stderr, "  --config path   config file (default config/assetd.toml)")
	fmt.Fprintln(os.Stderr, "  --root dir      asset root (default from config)")
	fmt.Fprintln(os.Stderr, "  --prefix p      restrict to names with this prefix")
	fmt.Fprintln(os.Stderr, "  --prune         push: delete store blobs with no local file")
	fmt.Fprintln(os.Stderr, "  --dry-run       report actions without writing")
}

func defaultConfigPath() string {
	if p := os.Getenv("ASSETD_CONFIG"); p != "" {
		return p
	}
	return "config/assetd.toml"
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}
	cmd := os.Args[1]

	flags := flag.NewFlagSet("assetsync", flag.ContinueOnError)
	cfgPath := flags.String("config", defaultConfigPath(), "config file")
	root := flags.String("root", "", "asset root (default from config)")
	prefix := flags.String("prefix", "", "restrict to names with this prefix")
	prune := flags.Bool("prune", false, "push: delete store blobs with no local file")
	dryRun := flags.Bool("dry-run", false, "report actions without writing")
	flags.Usage = printUsage
	if err := flags.Parse(os.Args[2:]); err != nil {
		os.Exit(2)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "assetsync: %v\n", err)
		os.Exit(1)
	}
	if *root == "" {
		*root = cfg.Assets.Root
	}

	ctx := context.Background()
	repo, db, err := openRepo(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "assetsync: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	opts := sync.Options{Prefix: *prefix, Prune: *prune, DryRun: *dryRun}

	switch cmd {
	case "push":
		res, err := sync.Push(ctx, repo, *root, opts, os.Stdout)
		exit(err, "%d pushed, %d unchanged, %d pruned\n", res.Pushed, res.Unchanged, res.Pruned)
	case "pull":
		res, err := sync.Pull(ctx, repo, *root, opts, os.Stdout)
		exit(err, "%d pulled, %d unchanged\n", res.Pulled, res.Unchanged)
	case "ls":
		exit(runLs(ctx, repo, *prefix), "")
	default:
		printUsage()
		os.Exit(2)
	}
}

func exit(err error, summary string, args ...any) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "assetsync: %v\n", err)
		os.Exit(1)
	}
	if summary != "" {
		fmt.Printf(summary, args...)
	}
	os.Exit(0)
}

// openRepo connects regardless of store.enabled. The tool's whole job is
// talking to the store; the flag only gates the daemon.
func openRepo(ctx context.Context, cfg *config.Config) (*persist.BlobRepo, *persist.DB, error) {
	dialCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	db, err := persist.NewDB(dialCtx, cfg.Store, zap.NewNop())
	if err != nil {
		return nil, nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	return persist.NewBlobRepo(db), db, nil
}

func runLs(ctx context.Context, repo *persist.BlobRepo, prefix string) error {
	infos, err := repo.List(ctx, prefix)
	if err != nil {
		return err
	}
	for _, info := range infos {
		fmt.Printf("%-48s %8d  %s  %s\n",
			info.Name, info.Size, shortDigest(info.Digest), info.UpdatedAt.Format(time.RFC3339))
	}
	fmt.Printf("%d blobs\n", len(infos))
	return nil
}

func shortDigest(d []byte) string {
	if len(d) < 4 {
		return "????????"
	}
	return hex.EncodeToString(d[:4])
}
