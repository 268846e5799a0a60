package main

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/waste3d/course-marketplace/internal/application"
)

func price(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

var demoCourses = []application.CourseDraft{
	{
		Title:        "Practical Go Services",
		Description:  "Build and ship HTTP and gRPC services in Go, from the first handler to graceful shutdown.",
		ThumbnailURL: "https://images.unsplash.com/photo-1526379095098-d400fd0bf935?auto=format&fit=crop&w=800&q=80",
		Price:        price("59.00"),
		Discount:     15,
		Chapters: []application.ChapterDraft{
			{Title: "Getting started", Lectures: []application.LectureDraft{
				{Title: "Why Go for services", DurationMinutes: 30, MediaURL: "https://media.example/go/intro.mp4", IsPreviewFree: true},
				{Title: "Project layout", DurationMinutes: 20, MediaURL: "https://media.example/go/layout.mp4"},
			}},
			{Title: "Storage", Lectures: []application.LectureDraft{
				{Title: "gorm and postgres", DurationMinutes: 45, MediaURL: "https://media.example/go/gorm.mp4"},
			}},
		},
	},
	{
		Title:        "UX/UI Design Basics",
		Description:  "Design clean, usable interfaces in Figma.",
		ThumbnailURL: "https://images.unsplash.com/photo-1561070791-2526d30994b5?auto=format&fit=crop&w=800&q=80",
		Price:        price("29.90"),
		Chapters: []application.ChapterDraft{
			{Title: "Foundations", Lectures: []application.LectureDraft{
				{Title: "Layout and grids", DurationMinutes: 25, MediaURL: "https://media.example/ux/grids.mp4", IsPreviewFree: true},
				{Title: "Typography", DurationMinutes: 35, MediaURL: "https://media.example/ux/type.mp4"},
			}},
		},
	},
}

// seedDemo publishes the demo catalog when no course exists yet.
func seedDemo(ctx context.Context, catalog *application.CatalogQueryService, publisher *application.PublishingService, logger *slog.Logger) error {
	existing, err := catalog.ListCourses(ctx, application.CourseQuery{Limit: 1})
	if err != nil {
		return err
	}
	if existing.Total > 0 {
		return nil
	}

	educator := application.Educator{ID: "demo-educator", Name: "Demo Educator"}
	for _, draft := range demoCourses {
		if _, err := publisher.Publish(ctx, educator, draft); err != nil {
			return err
		}
	}
	logger.Info("demo catalog seeded", "event", "seed_demo", "courses", len(demoCourses))
	return nil
}
