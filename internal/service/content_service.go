package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"learnhub_backend/internal/model"
	"learnhub_backend/internal/util"
	"learnhub_backend/pkg/configwatcher"
	"learnhub_backend/pkg/logger"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// ContentStats 内容树加载结果摘要
// swagger:model ContentStats
type ContentStats struct {
	Source       string    `json:"source"`
	Topics       int       `json:"topics"`
	NestedTopics int       `json:"nestedTopics"`
	Objectives   int       `json:"objectives"`
	Questions    int       `json:"questions"`
	LoadedAt     time.Time `json:"loadedAt"`
}

// ContentService 持有当前生效的内容树，重新加载时整体替换
type ContentService struct {
	Store ContentStore
	Path  string

	mu    sync.RWMutex
	tree  *model.ContentTree
	index map[model.ContentKey]*model.NestedTopic
	stats ContentStats
}

func NewContentService(store ContentStore, path string) *ContentService {
	return &ContentService{
		Store: store,
		Path:  path,
		tree:  &model.ContentTree{},
		index: map[model.ContentKey]*model.NestedTopic{},
	}
}

// Reload 从存储重新读取内容树；校验失败时保留旧树
func (s *ContentService) Reload(ctx context.Context) (*ContentStats, error) {
	data, err := s.Store.Read(ctx, s.Path)
	if err != nil {
		return nil, fmt.Errorf("read content %s: %w", s.Path, err)
	}
	if len(data) > util.MaxContentBytes {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", util.ErrInvalidContent, util.MaxContentBytes)
	}

	tree, err := ParseContentTree(s.Path, data)
	if err != nil {
		return nil, err
	}

	stats := s.swap(tree)
	logger.Log.Info("Content tree loaded",
		zap.String("source", stats.Source),
		zap.String("path", s.Path),
		zap.Int("topics", stats.Topics),
		zap.Int("nestedTopics", stats.NestedTopics),
	)
	return &stats, nil
}

// Upload 校验上传的内容树，写回存储并立即生效
// 存储格式以配置路径的扩展名为准，必要时转换
func (s *ContentService) Upload(ctx context.Context, filename string, data []byte) (*ContentStats, error) {
	if len(data) > util.MaxContentBytes {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", util.ErrInvalidContent, util.MaxContentBytes)
	}
	if _, err := util.ValidateContentUpload(filename, data); err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrInvalidContent, err)
	}

	tree, err := ParseContentTree(filename, data)
	if err != nil {
		return nil, err
	}

	out, contentType, err := encodeContentTree(s.Path, tree)
	if err != nil {
		return nil, err
	}
	if err := s.Store.Write(ctx, s.Path, out, contentType); err != nil {
		return nil, fmt.Errorf("write content %s: %w", s.Path, err)
	}

	stats := s.swap(tree)
	logger.Log.Info("Content tree replaced by upload",
		zap.String("filename", filename),
		zap.Int("nestedTopics", stats.NestedTopics),
	)
	return &stats, nil
}

// Watch 本地文件来源时监听文件变化并自动重新加载
func (s *ContentService) Watch(ctx context.Context) error {
	if _, ok := s.Store.(LocalContentStore); !ok {
		return fmt.Errorf("content watch requires a file source, got %s", s.Store.Describe())
	}
	return configwatcher.WatchFile(ctx, s.Path, 0, func() {
		if _, err := s.Reload(ctx); err != nil {
			logger.Log.Error("Content reload failed, keeping previous tree", zap.Error(err))
		}
	})
}

func (s *ContentService) swap(tree *model.ContentTree) ContentStats {
	index := make(map[model.ContentKey]*model.NestedTopic)
	stats := ContentStats{Source: s.Store.Describe(), Topics: len(tree.Topics), LoadedAt: time.Now()}

	for ti := range tree.Topics {
		t := &tree.Topics[ti]
		for si := range t.Subtopics {
			st := &t.Subtopics[si]
			for ni := range st.NestedTopics {
				n := &st.NestedTopics[ni]
				index[model.ContentKey{Topic: t.Slug, Subtopic: st.Slug, NestedTopic: n.Slug}] = n
				stats.NestedTopics++
				stats.Objectives += len(n.Objectives)
				stats.Questions += len(n.Quiz)
			}
		}
	}

	s.mu.Lock()
	s.tree = tree
	s.index = index
	s.stats = stats
	s.mu.Unlock()
	return stats
}

func (s *ContentService) Stats() ContentStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// Tree 返回不含题库的内容树副本
func (s *ContentService) Tree() *model.ContentTree {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := &model.ContentTree{Topics: make([]model.Topic, len(s.tree.Topics))}
	for ti, t := range s.tree.Topics {
		topic := model.Topic{Slug: t.Slug, Title: t.Title, Summary: t.Summary, Subtopics: make([]model.Subtopic, len(t.Subtopics))}
		for si, st := range t.Subtopics {
			sub := model.Subtopic{Slug: st.Slug, Title: st.Title, Summary: st.Summary, NestedTopics: make([]model.NestedTopic, len(st.NestedTopics))}
			for ni := range st.NestedTopics {
				sub.NestedTopics[ni] = st.NestedTopics[ni].PublicCopy()
			}
			topic.Subtopics[si] = sub
		}
		out.Topics[ti] = topic
	}
	return out
}

// NestedTopic 返回内部页面定义（含答案），调用方不得修改
func (s *ContentService) NestedTopic(key model.ContentKey) (*model.NestedTopic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.index[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", util.ErrUnknownTopic, key)
	}
	return n, nil
}

// Page 返回对外的页面视图
func (s *ContentService) Page(key model.ContentKey) (*model.NestedTopic, error) {
	n, err := s.NestedTopic(key)
	if err != nil {
		return nil, err
	}
	page := n.PublicCopy()
	return &page, nil
}

// ObjectiveCount 页面学习目标数量，决定进度向量长度
func (s *ContentService) ObjectiveCount(key model.ContentKey) (int, error) {
	n, err := s.NestedTopic(key)
	if err != nil {
		return 0, err
	}
	return len(n.Objectives), nil
}

// ParseContentTree 按文件名判断 JSON / YAML 并校验
func ParseContentTree(name string, data []byte) (*model.ContentTree, error) {
	var tree model.ContentTree
	if util.IsYAML(name) {
		if err := yaml.Unmarshal(data, &tree); err != nil {
			return nil, fmt.Errorf("%w: yaml: %v", util.ErrInvalidContent, err)
		}
	} else {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&tree); err != nil {
			return nil, fmt.Errorf("%w: json: %v", util.ErrInvalidContent, err)
		}
	}

	if err := ValidateContentTree(&tree); err != nil {
		return nil, err
	}
	return &tree, nil
}

// ValidateContentTree 检查 slug 唯一、目标 ID 唯一、题目引用与答案下标合法
func ValidateContentTree(tree *model.ContentTree) error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if len(tree.Topics) == 0 {
		fail("no topics")
	}

	topicSlugs := map[string]bool{}
	for _, t := range tree.Topics {
		if err := checkSlug(t.Slug, topicSlugs); err != nil {
			fail("topic %q: %v", t.Slug, err)
		}
		subSlugs := map[string]bool{}
		for _, st := range t.Subtopics {
			if err := checkSlug(st.Slug, subSlugs); err != nil {
				fail("subtopic %s/%q: %v", t.Slug, st.Slug, err)
			}
			nestedSlugs := map[string]bool{}
			for _, n := range st.NestedTopics {
				path := t.Slug + "/" + st.Slug + "/" + n.Slug
				if err := checkSlug(n.Slug, nestedSlugs); err != nil {
					fail("nested topic %s: %v", path, err)
				}
				validateNestedTopic(path, &n, fail)
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", util.ErrInvalidContent, errors.Join(errs...))
	}
	return nil
}

func validateNestedTopic(path string, n *model.NestedTopic, fail func(string, ...any)) {
	objectiveIDs := map[string]bool{}
	for _, o := range n.Objectives {
		switch {
		case strings.TrimSpace(o.ID) == "":
			fail("%s: objective with empty id", path)
		case objectiveIDs[o.ID]:
			fail("%s: duplicate objective id %q", path, o.ID)
		}
		objectiveIDs[o.ID] = true
	}

	questionIDs := map[string]bool{}
	for _, q := range n.Quiz {
		switch {
		case strings.TrimSpace(q.ID) == "":
			fail("%s: question with empty id", path)
		case questionIDs[q.ID]:
			fail("%s: duplicate question id %q", path, q.ID)
		}
		questionIDs[q.ID] = true

		if !objectiveIDs[q.Objective] {
			fail("%s: question %q references unknown objective %q", path, q.ID, q.Objective)
		}
		if len(q.Options) < 2 {
			fail("%s: question %q needs at least two options", path, q.ID)
		}
		if q.Answer < 0 || q.Answer >= len(q.Options) {
			fail("%s: question %q answer %d out of range", path, q.ID, q.Answer)
		}
	}
}

func checkSlug(slug string, seen map[string]bool) error {
	switch {
	case strings.TrimSpace(slug) == "":
		return errors.New("empty slug")
	case strings.ContainsAny(slug, "/?#"):
		return errors.New("slug contains reserved characters")
	case seen[slug]:
		return errors.New("duplicate slug")
	}
	seen[slug] = true
	return nil
}

func encodeContentTree(name string, tree *model.ContentTree) ([]byte, string, error) {
	if util.IsYAML(name) {
		out, err := yaml.Marshal(tree)
		return out, "application/yaml", err
	}
	out, err := json.MarshalIndent(tree, "", "  ")
	return out, util.MimeJSON, err
}
