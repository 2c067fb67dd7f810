package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"channelmart/internal/config"
	"channelmart/internal/db"
	"channelmart/internal/domain"
	sourcerepo "channelmart/internal/repository/source"
)

func main() {
	var (
		channelID  = flag.Int64("channel", 0, "channel id the post belongs to")
		postID     = flag.Int("post", 0, "post id within the channel")
		category   = flag.String("category", "", "category label for products from this post")
		used       = flag.Bool("used", false, "post lists used goods")
		kind       = flag.String("kind", string(domain.PriceWholesale), "price kind: wholesale or retail")
		deactivate = flag.Bool("deactivate", false, "stop tracking the post instead of adding it")
	)
	flag.Parse()

	if *channelID == 0 || *postID == 0 {
		fmt.Fprintln(os.Stderr, "both -channel and -post are required")
		flag.Usage()
		os.Exit(2)
	}

	priceKind := domain.PriceKind(*kind)
	if !*deactivate && !priceKind.Valid() {
		fmt.Fprintf(os.Stderr, "invalid -kind %q\n", *kind)
		os.Exit(2)
	}

	cfg := config.FromEnv()

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString, cfg.DBMaxConns)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect db: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	sources := sourcerepo.NewPostgres(pool)

	if *deactivate {
		if err := sources.Deactivate(ctx, *channelID, *postID); err != nil {
			fmt.Fprintf(os.Stderr, "deactivate source: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("source %d/%d deactivated\n", *channelID, *postID)
		return
	}

	src, err := sources.Upsert(ctx, sourcerepo.UpsertInput{
		ChannelID: *channelID,
		PostID:    *postID,
		Category:  *category,
		IsUsed:    *used,
		PriceKind: priceKind,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "upsert source: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("source %d/%d registered (category=%q used=%v kind=%s)\n",
		src.ChannelID, src.PostID, src.Category, src.IsUsed, src.PriceKind)
}
