package main

import (
	"context"
	"fmt"

	"github.com/Priyanshu1283/quizzer-backend/internal/config"
	"github.com/Priyanshu1283/quizzer-backend/internal/database"
	"github.com/Priyanshu1283/quizzer-backend/internal/logger"
	"github.com/Priyanshu1283/quizzer-backend/internal/model"
	"github.com/Priyanshu1283/quizzer-backend/internal/repository"
)

// Seeds a small demo catalog: one series with one sectioned mock test
// and a handful of questions per section. Intended for local development
// and e2e runs against a fresh database.
func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	seriesRepo := repository.NewTestSeriesRepository(pool)
	testRepo := repository.NewMockTestRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)

	series := &model.TestSeries{
		Name:        "SSC CGL Tier 1",
		Description: "Full-length mock tests for SSC CGL Tier 1",
		IsActive:    true,
	}
	if err := seriesRepo.Create(ctx, series); err != nil {
		log.Fatal().Err(err).Msg("Failed to create series")
	}
	log.Info().Str("series_id", series.ID.String()).Msg("Series created")

	test := &model.MockTest{
		TestSeriesID:     series.ID,
		Title:            "SSC CGL Mock Test 1",
		TotalTimeMinutes: 60,
		Price:            0,
		Sections: []model.Section{
			{Name: "Quantitative Aptitude", DurationMinutes: 30, QuestionCount: 3},
			{Name: "General Awareness", DurationMinutes: 30, QuestionCount: 2},
		},
		IsActive: true,
	}
	if err := testRepo.Create(ctx, test); err != nil {
		log.Fatal().Err(err).Msg("Failed to create mock test")
	}
	log.Info().Str("test_id", test.ID.String()).Msg("Mock test created")

	questions := []model.Question{
		{
			SectionName:        "Quantitative Aptitude",
			Text:               "What is 15% of 240?",
			Options:            []string{"30", "32", "36", "40"},
			CorrectOptionIndex: 2,
			Marks:              2,
			NegativeMarks:      0.5,
		},
		{
			SectionName:        "Quantitative Aptitude",
			Text:               "A train travels 180 km in 3 hours. What is its speed?",
			Options:            []string{"50 km/h", "55 km/h", "60 km/h", "65 km/h"},
			CorrectOptionIndex: 2,
			Marks:              2,
			NegativeMarks:      0.5,
		},
		{
			SectionName:        "Quantitative Aptitude",
			Text:               "If x + 7 = 12, what is x?",
			Options:            []string{"4", "5", "6", "7"},
			CorrectOptionIndex: 1,
			Marks:              2,
			NegativeMarks:      0.5,
		},
		{
			SectionName:        "General Awareness",
			Text:               "Which planet is known as the Red Planet?",
			Options:            []string{"Venus", "Jupiter", "Mars", "Saturn"},
			CorrectOptionIndex: 2,
			Marks:              1,
			NegativeMarks:      0.25,
		},
		{
			SectionName:        "General Awareness",
			Text:               "Who wrote the national anthem of India?",
			Options:            []string{"Bankim Chandra Chatterjee", "Rabindranath Tagore", "Sarojini Naidu", "Subhas Chandra Bose"},
			CorrectOptionIndex: 1,
			Marks:              1,
			NegativeMarks:      0.25,
		},
	}

	for i := range questions {
		questions[i].MockTestID = test.ID
		questions[i].OrderNum = i + 1
		if err := questionRepo.Create(ctx, &questions[i]); err != nil {
			log.Fatal().Err(err).Int("order", i+1).Msg("Failed to create question")
		}
	}
	log.Info().Int("count", len(questions)).Msg("Questions created")

	fmt.Println("Seed complete.")
	fmt.Printf("  series: %s\n", series.ID)
	fmt.Printf("  test:   %s\n", test.ID)
}
