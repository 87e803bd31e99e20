package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ObjectiveStatus 学习目标的掌握状态，合并时 Achieved > InProgress > NotAchieved
type ObjectiveStatus string

const (
	NotAchieved ObjectiveStatus = "not_achieved"
	InProgress  ObjectiveStatus = "in_progress"
	Achieved    ObjectiveStatus = "achieved"
)

// Rank 返回状态的序号，同时也是以半分为单位的得分权重
func (s ObjectiveStatus) Rank() int {
	switch s {
	case Achieved:
		return 2
	case InProgress:
		return 1
	default:
		return 0
	}
}

// Normalize 将零值视为 NotAchieved
func (s ObjectiveStatus) Normalize() ObjectiveStatus {
	if s == "" {
		return NotAchieved
	}
	return s
}

func ParseObjectiveStatus(v string) (ObjectiveStatus, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "achieved":
		return Achieved, nil
	case "in_progress", "in-progress":
		return InProgress, nil
	case "not_achieved", "not-achieved":
		return NotAchieved, nil
	}
	return "", fmt.Errorf("unknown objective status %q", v)
}

func (s ObjectiveStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(s.Normalize()))
}

func (s *ObjectiveStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("objective status must be a string: %w", err)
	}
	parsed, err := ParseObjectiveStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ProgressVector 与某个页面的学习目标按位置一一对应
type ProgressVector []ObjectiveStatus

// NewProgressVector 创建长度为 n 的全 NotAchieved 向量
func NewProgressVector(n int) ProgressVector {
	v := make(ProgressVector, n)
	for i := range v {
		v[i] = NotAchieved
	}
	return v
}

func (v ProgressVector) At(i int) ObjectiveStatus {
	if i < 0 || i >= len(v) {
		return NotAchieved
	}
	return v[i].Normalize()
}

func (v ProgressVector) Clone() ProgressVector {
	if v == nil {
		return nil
	}
	out := make(ProgressVector, len(v))
	copy(out, v)
	return out
}

// Truncate 截断到 n 个目标，用于丢弃超出内容定义的多余位置
func (v ProgressVector) Truncate(n int) ProgressVector {
	if len(v) <= n {
		return v.Clone()
	}
	return v[:n].Clone()
}

// Count 统计各状态出现次数
func (v ProgressVector) Count() (achieved, inProgress, notAchieved int) {
	for i := range v {
		switch v.At(i) {
		case Achieved:
			achieved++
		case InProgress:
			inProgress++
		default:
			notAchieved++
		}
	}
	return
}
