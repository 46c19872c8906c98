package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"classhub/internal/common"
	"classhub/internal/config"
	"classhub/internal/infra"
	"classhub/internal/school"
	"classhub/internal/undo"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// fixture 种子数据文件结构
type fixture struct {
	UserID  string `yaml:"user_id"`
	Classes []struct {
		Name         string `yaml:"name"`
		Grade        string `yaml:"grade"`
		Subject      string `yaml:"subject"`
		AcademicYear string `yaml:"academic_year"`
		Students     []struct {
			FullName      string `yaml:"full_name"`
			StudentNumber string `yaml:"student_number"`
			Gender        string `yaml:"gender"`
		} `yaml:"students"`
	} `yaml:"classes"`
	Tasks []struct {
		Title       string `yaml:"title"`
		Subject     string `yaml:"subject"`
		Description string `yaml:"description"`
		DueInDays   int    `yaml:"due_in_days"`
	} `yaml:"tasks"`
}

func main() {
	env := flag.String("env", "dev", "配置环境 dev/prod/test")
	file := flag.String("file", "config/seed.yaml", "种子数据文件路径")
	migrate := flag.Bool("migrate", true, "写入前执行自动迁移")
	flag.Parse()

	cfg, err := config.Load(*env, "")
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	db, err := infra.InitDatabase(&cfg.Database)
	if err != nil {
		log.Fatalf("初始化数据库失败: %v", err)
	}
	defer infra.CloseDatabase()

	if *migrate {
		models := append(school.Models(), &undo.Action{})
		if err := db.AutoMigrate(models...); err != nil {
			log.Fatalf("自动迁移失败: %v", err)
		}
	}

	raw, err := os.ReadFile(*file)
	if err != nil {
		log.Fatalf("读取种子数据文件失败: %v", err)
	}
	var fx fixture
	if err := yaml.Unmarshal(raw, &fx); err != nil {
		log.Fatalf("解析种子数据文件失败: %v", err)
	}
	if fx.UserID == "" {
		log.Fatal("种子数据缺少 user_id")
	}

	ctx := context.Background()
	total, err := seed(ctx, db, &fx)
	if err != nil {
		log.Fatalf("写入种子数据失败: %v", err)
	}
	fmt.Printf("种子数据写入完成，共 %d 条记录\n", total)
}

// seed 在单个事务中写入全部种子数据
func seed(ctx context.Context, db *gorm.DB, fx *fixture) (int, error) {
	total := 0
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, c := range fx.Classes {
			cls := &school.Class{
				OwnedModel:   common.OwnedModel{UserID: fx.UserID},
				Name:         c.Name,
				Grade:        c.Grade,
				Subject:      c.Subject,
				AcademicYear: c.AcademicYear,
			}
			if err := tx.Create(cls).Error; err != nil {
				return fmt.Errorf("创建班级 %s 失败: %w", c.Name, err)
			}
			total++

			for _, s := range c.Students {
				st := &school.Student{
					OwnedModel:    common.OwnedModel{UserID: fx.UserID},
					FullName:      s.FullName,
					StudentNumber: s.StudentNumber,
					Gender:        s.Gender,
					ClassID:       cls.ID,
				}
				if err := tx.Create(st).Error; err != nil {
					return fmt.Errorf("创建学生 %s 失败: %w", s.FullName, err)
				}
				total++
			}
		}

		for _, t := range fx.Tasks {
			task := &school.Task{
				OwnedModel:  common.OwnedModel{UserID: fx.UserID},
				Title:       t.Title,
				Subject:     t.Subject,
				Description: t.Description,
				Status:      school.TaskStatusPending,
			}
			if t.DueInDays > 0 {
				due := time.Now().AddDate(0, 0, t.DueInDays)
				task.DueDate = &due
			}
			if err := tx.Create(task).Error; err != nil {
				return fmt.Errorf("创建任务 %s 失败: %w", t.Title, err)
			}
			total++
		}
		return nil
	})
	return total, err
}
