package search

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"classhub/internal/common"
	"classhub/internal/school"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 匹配得分
const (
	scoreExact    = 100
	scorePrefix   = 90
	scoreContains = 75
	// fuzzyThreshold 模糊匹配的最低相似度
	fuzzyThreshold = 0.5
)

// Result 搜索结果条目
type Result struct {
	Type     string `json:"type"` // student, class, task
	ID       string `json:"id"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle,omitempty"`
	Score    int    `json:"score"`
}

// Service 全局搜索服务
// 在学生、班级与任务中按相关度查找，结果限定在查询者名下。
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewService 创建搜索服务
func NewService(db *gorm.DB, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: db, logger: logger}
}

// relevance 计算候选文本对查询词的相关度，不匹配时返回 0
// 依次尝试精确、前缀、包含匹配，最后回退到编辑距离的模糊匹配。
func relevance(query, candidate string) int {
	q := strings.ToLower(strings.TrimSpace(query))
	c := strings.ToLower(strings.TrimSpace(candidate))
	if q == "" || c == "" {
		return 0
	}
	if c == q {
		return scoreExact
	}
	if strings.HasPrefix(c, q) {
		return scorePrefix
	}
	if strings.Contains(c, q) {
		return scoreContains
	}

	dist := levenshtein(q, c)
	maxLen := len([]rune(q))
	if l := len([]rune(c)); l > maxLen {
		maxLen = l
	}
	similarity := 1 - float64(dist)/float64(maxLen)
	if similarity < fuzzyThreshold {
		return 0
	}
	return int(similarity * float64(scoreContains))
}

// Search 跨实体搜索，按相关度降序返回，limit 非正时取默认 20
func (s *Service) Search(ctx context.Context, ownerID, query string, limit int) ([]Result, error) {
	if strings.TrimSpace(query) == "" {
		return []Result{}, nil
	}
	if limit <= 0 {
		limit = 20
	}

	var results []Result

	var students []school.Student
	err := s.db.WithContext(ctx).Model(&school.Student{}).
		Scopes(common.ByOwner(ownerID), common.NotDeleted()).
		Find(&students).Error
	if err != nil {
		return nil, fmt.Errorf("搜索学生失败: %w", err)
	}
	for i := range students {
		st := &students[i]
		score := relevance(query, st.FullName)
		if s2 := relevance(query, st.StudentNumber); s2 > score {
			score = s2
		}
		if score > 0 {
			results = append(results, Result{
				Type:     "student",
				ID:       st.ID,
				Title:    st.FullName,
				Subtitle: st.StudentNumber,
				Score:    score,
			})
		}
	}

	var classes []school.Class
	err = s.db.WithContext(ctx).Model(&school.Class{}).
		Scopes(common.ByOwner(ownerID), common.NotDeleted()).
		Find(&classes).Error
	if err != nil {
		return nil, fmt.Errorf("搜索班级失败: %w", err)
	}
	for i := range classes {
		cls := &classes[i]
		if score := relevance(query, cls.Name); score > 0 {
			results = append(results, Result{
				Type:     "class",
				ID:       cls.ID,
				Title:    cls.Name,
				Subtitle: cls.Grade,
				Score:    score,
			})
		}
	}

	var taskRows []school.Task
	err = s.db.WithContext(ctx).Model(&school.Task{}).
		Scopes(common.ByOwner(ownerID), common.NotDeleted()).
		Find(&taskRows).Error
	if err != nil {
		return nil, fmt.Errorf("搜索任务失败: %w", err)
	}
	for i := range taskRows {
		task := &taskRows[i]
		if score := relevance(query, task.Title); score > 0 {
			results = append(results, Result{
				Type:     "task",
				ID:       task.ID,
				Title:    task.Title,
				Subtitle: task.Subject,
				Score:    score,
			})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Title < results[j].Title
	})
	if len(results) > limit {
		results = results[:limit]
	}
	if results == nil {
		results = []Result{}
	}
	return results, nil
}
