// Command repair runs the relationship reconciliation passes by hand.
//
//	repair fix-followers
//	repair verify <userID>
//	repair fix-friends
//	repair fix-members
//	repair all
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/Dias221467/Social_Graph/internal/config"
	"github.com/Dias221467/Social_Graph/internal/database"
	"github.com/Dias221467/Social_Graph/internal/jobs"
	"github.com/Dias221467/Social_Graph/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to a config file")
	timeout := flag.Duration("timeout", 30*time.Minute, "maximum run time")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: repair [-config file] [-timeout d] fix-followers | verify <userID> | fix-friends | fix-members | all")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Log.Fatalf("Failed to load config: %v", err)
	}
	logger.InitLogger(cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	store, err := database.ConnectDB(ctx, cfg)
	if err != nil {
		logger.Log.Fatalf("Database connection error: %v", err)
	}
	defer store.Close(context.Background())

	report, err := run(ctx, jobs.NewReconciler(store), flag.Args())
	if err != nil {
		logger.Log.Errorf("Repair failed: %v", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		logger.Log.Errorf("Failed to print report: %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, r *jobs.Reconciler, args []string) (interface{}, error) {
	switch args[0] {
	case "fix-followers":
		return r.FixFollowersSubcollection(ctx)
	case "verify":
		if len(args) < 2 {
			return nil, fmt.Errorf("verify needs a user id")
		}
		return r.VerifyFollowersStructure(ctx, args[1])
	case "fix-friends":
		return r.FixFriendEdges(ctx)
	case "fix-members":
		return r.FixCommunityMembers(ctx)
	case "all":
		followers, err := r.FixFollowersSubcollection(ctx)
		if err != nil {
			return nil, err
		}
		friends, err := r.FixFriendEdges(ctx)
		if err != nil {
			return nil, err
		}
		members, err := r.FixCommunityMembers(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{
			"followers": followers,
			"friends":   friends,
			"members":   members,
		}, nil
	default:
		return nil, fmt.Errorf("unknown command %q", args[0])
	}
}
