package model

// ContentTree 门户的全部学习内容，来自 JSON 或 YAML 文件
// swagger:model ContentTree
type ContentTree struct {
	Topics []Topic `json:"topics" yaml:"topics"`
}

// swagger:model Topic
type Topic struct {
	Slug      string     `json:"slug" yaml:"slug"`
	Title     string     `json:"title" yaml:"title"`
	Summary   string     `json:"summary,omitempty" yaml:"summary"`
	Subtopics []Subtopic `json:"subtopics" yaml:"subtopics"`
}

// swagger:model Subtopic
type Subtopic struct {
	Slug         string        `json:"slug" yaml:"slug"`
	Title        string        `json:"title" yaml:"title"`
	Summary      string        `json:"summary,omitempty" yaml:"summary"`
	NestedTopics []NestedTopic `json:"nestedTopics" yaml:"nestedTopics"`
}

// NestedTopic 最底层的内容页，目标顺序决定进度向量的位置
// swagger:model NestedTopic
type NestedTopic struct {
	Slug       string         `json:"slug" yaml:"slug"`
	Title      string         `json:"title" yaml:"title"`
	Body       string         `json:"body,omitempty" yaml:"body"`
	Objectives []Objective    `json:"objectives" yaml:"objectives"`
	Quiz       []QuizQuestion `json:"quiz,omitempty" yaml:"quiz"`
	// QuestionCount 仅在对外视图中填写，题目本身不下发
	QuestionCount int `json:"questionCount,omitempty" yaml:"-"`
}

// swagger:model Objective
type Objective struct {
	ID   string `json:"id" yaml:"id"`
	Text string `json:"text" yaml:"text"`
}

// QuizQuestion 题库中的一道单选题，Objective 指向所考查的学习目标 ID
// swagger:model QuizQuestion
type QuizQuestion struct {
	ID        string   `json:"id" yaml:"id"`
	Prompt    string   `json:"prompt" yaml:"prompt"`
	Options   []string `json:"options" yaml:"options"`
	Answer    int      `json:"answer" yaml:"answer"`
	Objective string   `json:"objective" yaml:"objective"`
}

// QuizQuestionView 下发给学生的题目，不含答案
// swagger:model QuizQuestionView
type QuizQuestionView struct {
	ID        string   `json:"id"`
	Prompt    string   `json:"prompt"`
	Options   []string `json:"options"`
	Objective string   `json:"objective"`
}

func (q QuizQuestion) View() QuizQuestionView {
	return QuizQuestionView{
		ID:        q.ID,
		Prompt:    q.Prompt,
		Options:   append([]string(nil), q.Options...),
		Objective: q.Objective,
	}
}

// PublicCopy 返回去掉题库的页面副本
func (n *NestedTopic) PublicCopy() NestedTopic {
	return NestedTopic{
		Slug:          n.Slug,
		Title:         n.Title,
		Body:          n.Body,
		Objectives:    append([]Objective(nil), n.Objectives...),
		QuestionCount: len(n.Quiz),
	}
}

// ObjectiveIndex 返回目标 ID 在页面中的位置
func (n *NestedTopic) ObjectiveIndex(id string) int {
	for i, o := range n.Objectives {
		if o.ID == id {
			return i
		}
	}
	return -1
}

// ObjectiveProgress 将状态与目标配对后返回给前端
// swagger:model ObjectiveProgress
type ObjectiveProgress struct {
	ID     string          `json:"id"`
	Text   string          `json:"text"`
	Status ObjectiveStatus `json:"status"`
}

// PairObjectives 按位置把目标与进度向量配对
func PairObjectives(objectives []Objective, v ProgressVector) []ObjectiveProgress {
	out := make([]ObjectiveProgress, len(objectives))
	for i, o := range objectives {
		out[i] = ObjectiveProgress{ID: o.ID, Text: o.Text, Status: v.At(i)}
	}
	return out
}
