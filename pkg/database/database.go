package database

import (
	"fmt"
	"log"

	"study_roadmap_backend/internal/config"
	"study_roadmap_backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
		cfg.Charset,
		cfg.ParseTime,
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})

	if err != nil {
		return nil, err
	}

	log.Println("Database connection established")

	err = db.AutoMigrate(
		&model.StudentProfile{},
		&model.SubjectTarget{},
		&model.PerformanceRecord{},
		&model.LearningResource{},
		&model.RoadmapPlan{},
		&model.WeeklyPlan{},
		&model.HourAllocation{},
		&model.Task{},
		&model.ActivityRecord{},
		&model.MonitoringSummary{},
		&model.Feedback{},
		&model.RoadmapRevision{},
	)

	if err != nil {
		return nil, err
	}

	log.Println("Database migration completed")

	// 资源目录为空时填入一套默认目录，保证空库也能生成计划
	var count int64
	db.Model(&model.LearningResource{}).Count(&count)
	if count == 0 {
		for _, res := range defaultCatalog() {
			db.Create(&res)
		}
		log.Println("Default resource catalog seeded")
	}

	return db, nil
}

func defaultCatalog() []model.LearningResource {
	type entry struct {
		subject    string
		topic      string
		kind       string
		difficulty int
		minutes    int
	}
	entries := []entry{
		{"数学", "函数与方程", "video", model.DifficultyBasic, 45},
		{"数学", "函数与方程", "practice_test", model.DifficultyElementary, 60},
		{"数学", "几何证明", "video", model.DifficultyElementary, 50},
		{"数学", "几何证明", "practice_test", model.DifficultyIntermediate, 60},
		{"数学", "数列与概率", "textbook", model.DifficultyIntermediate, 90},
		{"数学", "综合压轴题", "practice_test", model.DifficultyAdvanced, 90},
		{"物理", "力学基础", "video", model.DifficultyBasic, 40},
		{"物理", "力学基础", "practice_test", model.DifficultyElementary, 60},
		{"物理", "电磁学", "video", model.DifficultyIntermediate, 55},
		{"物理", "电磁学", "practice_test", model.DifficultyAdvanced, 75},
		{"化学", "化学方程式", "video", model.DifficultyBasic, 35},
		{"化学", "化学方程式", "practice_test", model.DifficultyElementary, 50},
		{"化学", "有机化学", "textbook", model.DifficultyIntermediate, 80},
		{"化学", "化学实验", "practice_test", model.DifficultyAdvanced, 70},
		{"英语", "词汇与语法", "video", model.DifficultyBasic, 30},
		{"英语", "阅读理解", "practice_test", model.DifficultyElementary, 45},
		{"英语", "完形填空", "practice_test", model.DifficultyIntermediate, 45},
		{"英语", "写作训练", "textbook", model.DifficultyAdvanced, 60},
		{"语文", "现代文阅读", "textbook", model.DifficultyElementary, 50},
		{"语文", "文言文", "video", model.DifficultyIntermediate, 55},
		{"语文", "作文素材", "textbook", model.DifficultyAdvanced, 60},
	}

	resources := make([]model.LearningResource, 0, len(entries))
	for _, e := range entries {
		resources = append(resources, model.LearningResource{
			ID:               uuid.New().String(),
			Title:            fmt.Sprintf("%s·%s", e.subject, e.topic),
			Kind:             e.kind,
			Subject:          e.subject,
			Topic:            e.topic,
			Difficulty:       e.difficulty,
			EstimatedMinutes: e.minutes,
		})
	}
	return resources
}
