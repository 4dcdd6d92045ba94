package main

import (
	"context"
	"fmt"
	"time"

	"github.com/vandap/vandap-backend/internal/config"
	"github.com/vandap/vandap-backend/internal/database"
	"github.com/vandap/vandap-backend/internal/logger"
	"github.com/vandap/vandap-backend/internal/model"
	"github.com/vandap/vandap-backend/internal/repository"
	"github.com/vandap/vandap-backend/internal/service"
)

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	studentRepo := repository.NewStudentRepository(pool)
	authService := service.NewAuthService(cfg, rdb)
	studentService := service.NewStudentService(studentRepo, authService, log)

	fmt.Println("=== Seeding 50 Students ===")

	names := []string{
		"Nguyen Van An", "Tran Thi Binh", "Le Van Cuong", "Pham Thi Dung", "Hoang Van Em",
		"Vu Thi Giang", "Dang Van Hai", "Bui Thi Hanh", "Do Van Hung", "Ngo Thi Lan",
		"Duong Van Long", "Ly Thi Mai", "Nguyen Van Nam", "Tran Thi Nga", "Le Van Phuc",
		"Pham Thi Quynh", "Hoang Van Son", "Vu Thi Thao", "Dang Van Tuan", "Bui Thi Uyen",
		"Do Van Vinh", "Ngo Thi Xuan", "Duong Van Yen", "Ly Thi Anh", "Nguyen Van Bao",
		"Tran Thi Chi", "Le Van Dat", "Pham Thi Ha", "Hoang Van Khoa", "Vu Thi Linh",
		"Dang Van Minh", "Bui Thi Ngoc", "Do Van Phong", "Ngo Thi Quyen", "Duong Van Tam",
		"Ly Thi Van", "Nguyen Van Duc", "Tran Thi Hoa", "Le Van Kiet", "Pham Thi Loan",
		"Hoang Van Nghia", "Vu Thi Oanh", "Dang Van Quang", "Bui Thi Suong", "Do Van Thanh",
		"Ngo Thi Trang", "Duong Van Viet", "Ly Thi Yen", "Nguyen Van Khanh", "Tran Thi My",
	}

	successCount := 0
	for i := 0; i < 50; i++ {
		req := &model.CreateStudentRequest{
			StudentCode: fmt.Sprintf("SV%04d", i+1),
			FullName:    names[i],
			Password:    "vandap123",
		}

		_, err := studentService.Create(ctx, req)
		if err != nil {
			fmt.Printf("Error creating student %s (%s): %v\n", req.FullName, req.StudentCode, err)
		} else {
			successCount++
			if (i+1)%10 == 0 {
				fmt.Printf("Created %d students...\n", i+1)
			}
		}
	}

	fmt.Printf("\nSeed completed! Successfully added %d/50 students.\n", successCount)
}
