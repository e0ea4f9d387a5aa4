package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/sakashimaa/lesson-booking/internal/domain"
	"github.com/sakashimaa/lesson-booking/internal/repository"
)

func LoadFile(path string) ([]domain.Lesson, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading seed file %s: %w", path, err)
	}

	var lessons []domain.Lesson
	if err := json.Unmarshal(data, &lessons); err != nil {
		return nil, fmt.Errorf("error decoding seed file %s: %w", path, err)
	}

	for i, l := range lessons {
		if l.ID == "" {
			return nil, fmt.Errorf("seed lesson %d has no id", i)
		}
		if l.Price < 0 || l.Space < 0 {
			return nil, fmt.Errorf("seed lesson %s has negative price or space", l.ID)
		}
	}

	return lessons, nil
}

// Run seeds repo from path. It is a no-op when the store already holds
// lessons.
func Run(ctx context.Context, repo repository.LessonRepository, path string) (int, error) {
	lessons, err := LoadFile(path)
	if err != nil {
		return 0, err
	}

	return repo.Seed(ctx, lessons)
}
