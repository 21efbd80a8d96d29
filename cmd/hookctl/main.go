package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/moraeszete/webhook-payments-integrations/common/id"
	"github.com/moraeszete/webhook-payments-integrations/core/config"
	"github.com/moraeszete/webhook-payments-integrations/core/db"
	"github.com/moraeszete/webhook-payments-integrations/internal/claim"
	"github.com/moraeszete/webhook-payments-integrations/internal/service"
	"github.com/moraeszete/webhook-payments-integrations/internal/store"
)

const usage = `hookctl manages supplier tokens and idempotency claims.

Usage:
  hookctl token create [--label NAME]
  hookctl token rotate --id ID
  hookctl token deactivate --id ID
  hookctl token activate --id ID
  hookctl token list
  hookctl claims show --key KEY
  hookctl claims release --key KEY
  hookctl claims purge --route /asaas
`

func main() {
	if len(os.Args) < 3 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg, err := config.Load(config.ServiceTypeCLI)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	group, cmd, args := os.Args[1], os.Args[2], os.Args[3:]
	switch group {
	case "token":
		err = runToken(ctx, cfg, cmd, args)
	case "claims":
		err = runClaims(ctx, cfg, cmd, args)
	default:
		err = fmt.Errorf("unknown command group %q", group)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "hookctl %s %s: %v\n", group, cmd, err)
		os.Exit(1)
	}
}

func runToken(ctx context.Context, cfg config.Config, cmd string, args []string) error {
	fs := flag.NewFlagSet("token "+cmd, flag.ContinueOnError)
	label := fs.String("label", "", "human readable owner of the token")
	tokenID := fs.Int64("id", 0, "token id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := id.Init(cfg.NodeID); err != nil {
		return fmt.Errorf("init id generator: %w", err)
	}

	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		return err
	}
	defer database.Close()
	if err := database.EnsureSchema(ctx); err != nil {
		return err
	}

	admin := service.NewTokenAdminService(store.NewStores(database.Queries()).Tokens(), service.TokenHashCost)

	requireID := func() error {
		if *tokenID == 0 {
			return fmt.Errorf("--id is required")
		}
		return nil
	}

	switch cmd {
	case "create":
		issued, err := admin.Create(ctx, *label)
		if err != nil {
			return err
		}
		printIssued(issued)
	case "rotate":
		if err := requireID(); err != nil {
			return err
		}
		issued, err := admin.Rotate(ctx, *tokenID)
		if err != nil {
			return err
		}
		printIssued(issued)
	case "deactivate", "activate":
		if err := requireID(); err != nil {
			return err
		}
		if err := admin.SetActive(ctx, *tokenID, cmd == "activate"); err != nil {
			return err
		}
		fmt.Printf("token %d %sd\n", *tokenID, cmd)
	case "list":
		tokens, err := admin.List(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tLABEL\tACTIVE\tCREATED\tROTATED")
		for _, t := range tokens {
			rotated := "-"
			if t.RotatedAt != nil {
				rotated = t.RotatedAt.Format(time.RFC3339)
			}
			fmt.Fprintf(w, "%d\t%s\t%t\t%s\t%s\n", t.ID, t.Label, t.Active, t.CreatedAt.Format(time.RFC3339), rotated)
		}
		return w.Flush()
	default:
		return fmt.Errorf("unknown token command %q", cmd)
	}
	return nil
}

func printIssued(issued *service.IssuedToken) {
	fmt.Printf("token id:   %d\n", issued.Token.ID)
	fmt.Printf("credential: %s\n", issued.Credential)
	fmt.Println("store the credential now; only its hash is kept")
}

func runClaims(ctx context.Context, cfg config.Config, cmd string, args []string) error {
	fs := flag.NewFlagSet("claims "+cmd, flag.ContinueOnError)
	key := fs.String("key", "", "full claim key")
	route := fs.String("route", "", "provider route, e.g. /asaas")
	namespace := fs.String("namespace", cfg.Claims.Namespace, "claim namespace")
	if err := fs.Parse(args); err != nil {
		return err
	}

	claims, closeStore, err := openClaimStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	switch cmd {
	case "show":
		if *key == "" {
			return fmt.Errorf("--key is required")
		}
		c, ok, err := claims.Get(ctx, claim.Key(*key))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("no live claim")
			return nil
		}
		out, err := json.MarshalIndent(c, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))

		if cfg.Queue.Backend == config.QueueBackendPostgres {
			n, err := countQueued(ctx, cfg, *key)
			if err != nil {
				return err
			}
			fmt.Printf("queued events: %d\n", n)
		}
	case "release":
		if *key == "" {
			return fmt.Errorf("--key is required")
		}
		released, err := claims.Release(ctx, claim.Key(*key))
		if err != nil {
			return err
		}
		fmt.Printf("released: %t\n", released)
	case "purge":
		if strings.TrimSpace(*route) == "" {
			return fmt.Errorf("--route is required")
		}
		n, err := claims.PurgeRoute(ctx, *namespace, *route)
		if err != nil {
			return err
		}
		fmt.Printf("purged %d claims under %s\n", n, claim.RoutePrefix(*namespace, *route))
	default:
		return fmt.Errorf("unknown claims command %q", cmd)
	}
	return nil
}

func openClaimStore(ctx context.Context, cfg config.Config) (claim.Store, func(), error) {
	if cfg.Claims.Backend == config.ClaimBackendPostgres {
		database, err := db.New(ctx, cfg.DB)
		if err != nil {
			return nil, nil, err
		}
		return claim.NewPostgresStore(database.Queries()), database.Close, nil
	}

	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	return claim.NewRedisStore(client), func() { _ = client.Close() }, nil
}

func countQueued(ctx context.Context, cfg config.Config, key string) (int64, error) {
	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		return 0, err
	}
	defer database.Close()
	return store.NewStores(database.Queries()).QueuedEvents().CountByClaimKey(ctx, key)
}
