// Command export writes the current club activity snapshot to an xlsx
// workbook for the moderation team.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	activityservice "github.com/romeda-works/romeda-bot/app/modules/activity/application"
	activitydb "github.com/romeda-works/romeda-bot/app/modules/activity/infrastructure/repositories"
	"github.com/romeda-works/romeda-bot/config"
	"github.com/romeda-works/romeda-bot/db/bundb"
)

const sheet = "activity"

func main() {
	configFile := flag.String("config", "config.yaml", "Path to the configuration file")
	out := flag.String("out", "", "Output path (default club-activity-<date>.xlsx)")
	flag.Parse()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx := context.Background()
	db, err := bundb.NewDB(ctx, cfg.Postgres.DSN)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	repo := activitydb.NewRepository(db)

	counts, err := repo.GetWeeklyCounts(ctx, db)
	if err != nil {
		log.Fatalf("failed to read weekly counts: %v", err)
	}

	type row struct {
		channelID string
		messages  int
		score     int
	}
	rows := make([]row, 0, len(counts))
	for channelID, messages := range counts {
		score, err := repo.GetPreviousScore(ctx, db, channelID)
		if err != nil && !errors.Is(err, activitydb.ErrNotFound) {
			log.Fatalf("failed to read score for %s: %v", channelID, err)
		}
		rows = append(rows, row{channelID: channelID, messages: messages, score: score})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].score != rows[j].score {
			return rows[i].score > rows[j].score
		}
		return rows[i].channelID < rows[j].channelID
	})

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheet)
	if err != nil {
		log.Fatalf("failed to create sheet: %v", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headers := []string{"Rank", "Channel ID", "Weekly Messages", "Last Activity Score"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			log.Fatalf("failed to write header: %v", err)
		}
	}
	for i, r := range rows {
		values := []any{i + 1, r.channelID, r.messages, r.score}
		for j, v := range values {
			cell, _ := excelize.CoordinatesToCellName(j+1, i+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				log.Fatalf("failed to write row %d: %v", i+1, err)
			}
		}
	}

	path := *out
	if path == "" {
		path = fmt.Sprintf("club-activity-%s.xlsx", time.Now().In(activityservice.Zone).Format("20060102"))
	}
	if err := f.SaveAs(path); err != nil {
		log.Fatalf("failed to save workbook: %v", err)
	}
	fmt.Printf("Wrote %d channels to %s\n", len(rows), path)
}
