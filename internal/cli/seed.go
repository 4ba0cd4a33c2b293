package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/aura-quiz/backend/internal/models"
	"github.com/aura-quiz/backend/internal/quizzes"
	"github.com/aura-quiz/backend/internal/store/postgres"
)

// NewSeedCmd imports quizzes from a YAML file.
func NewSeedCmd(logger func() *zap.Logger) *cobra.Command {
	var (
		file  string
		owner int64
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Import quizzes from a YAML document list",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logger()
			defer log.Sync()

			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()
			docs, err := decodeDocuments(f)
			if err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}

			pool, err := openPool(cmd.Context(), log)
			if err != nil {
				return err
			}
			defer pool.Close()
			return seed(cmd.Context(), quizzes.NewService(postgres.New(pool), log), owner, docs, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML file with a list of quizzes")
	cmd.Flags().Int64Var(&owner, "owner", 0, "id of the user who owns the imported quizzes")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}

// decodeDocuments reads a YAML sequence of quizzes.
func decodeDocuments(r io.Reader) ([]models.QuizDocument, error) {
	var docs []models.QuizDocument
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&docs); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("no quizzes in file")
		}
		return nil, err
	}
	if len(docs) == 0 {
		return nil, errors.New("no quizzes in file")
	}
	return docs, nil
}

// seed imports each document; each quiz is atomic, and the first failure stops the run.
func seed(ctx context.Context, svc *quizzes.Service, owner int64, docs []models.QuizDocument, out io.Writer) error {
	for i, doc := range docs {
		q, err := svc.Import(ctx, owner, doc)
		if err != nil {
			return fmt.Errorf("quiz %d (%q): %w", i+1, doc.Title, err)
		}
		fmt.Fprintf(out, "imported quiz %d %q with %d questions\n", q.ID, q.Title, len(q.Questions))
	}
	return nil
}
