package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/usamatauqir381/questxcopilot/internal/config"
	"github.com/usamatauqir381/questxcopilot/internal/model"
	"github.com/usamatauqir381/questxcopilot/internal/repository"
	"github.com/usamatauqir381/questxcopilot/internal/service"
)

// setFlags collects repeated -set slug:role:path values
type setFlags []string

func (s *setFlags) String() string { return strings.Join(*s, ",") }

func (s *setFlags) Set(v string) error {
	if len(strings.SplitN(v, ":", 3)) != 3 {
		return fmt.Errorf("want slug:role:path, got %q", v)
	}
	*s = append(*s, v)
	return nil
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	cfg := config.Load()

	var sets setFlags
	catalogPath := flag.String("catalog", "", "assessments catalog file to seed")
	flag.Var(&sets, "set", "question set to import as slug:role:path (repeatable)")
	shared := flag.Bool("shared", false, "store imported tutorial sets as shared by every level")
	credentialsPath := flag.String("credentials", "", "JSON array of {email, level, password} to provision")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Disconnect(ctx)

	db := client.Database(cfg.MongoDB)
	repository.EnsureIndexes(ctx, db)

	provisioning := service.NewProvisioningService(
		repository.NewAssessmentRepo(db),
		repository.NewQuestionRepo(db),
		repository.NewCredentialRepo(db),
	)

	if *catalogPath != "" {
		catalog, err := config.LoadCatalog(*catalogPath)
		if err != nil {
			log.Fatalf("Failed to load catalog: %v", err)
		}
		created, err := provisioning.SeedCatalog(ctx, catalog)
		if err != nil {
			log.Fatalf("Failed to seed catalog: %v", err)
		}
		log.Printf("Seeded %d of %d catalog assessments", created, len(catalog.Assessments))
	}

	for _, arg := range sets {
		parts := strings.SplitN(arg, ":", 3)
		slug, role, path := parts[0], model.SetRole(parts[1]), parts[2]

		var records []model.QuestionRecord
		if err := readJSON(path, &records); err != nil {
			log.Fatalf("Failed to read %s: %v", path, err)
		}
		set, err := provisioning.ImportQuestions(ctx, slug, role, *shared && role == model.SetTutorial, path, records)
		if err != nil {
			log.Fatalf("Failed to import %s: %v", path, err)
		}
		log.Printf("Imported %d %s questions for %s (set %s)", len(records), role, slug, set.ID)
	}

	if *credentialsPath != "" {
		var batch []model.ProvisionRequest
		if err := readJSON(*credentialsPath, &batch); err != nil {
			log.Fatalf("Failed to read %s: %v", *credentialsPath, err)
		}
		results, err := provisioning.UpsertCredentials(ctx, batch)
		if err != nil {
			log.Fatalf("Failed to provision credentials: %v", err)
		}
		for _, r := range results {
			if r.GeneratedPassword != "" {
				fmt.Printf("%s\t%s\t%s\n", r.Email, r.Level, r.GeneratedPassword)
			}
		}
		log.Printf("Provisioned %d credentials", len(results))
	}

	log.Println("Seed complete")
}
