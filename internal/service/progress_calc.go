package service

import "learnhub_backend/internal/model"

// MergeProgress 逐位取较高状态合并两个进度向量
// 结果长度取两者较长者，缺失位置按 NotAchieved 处理；输入不会被修改
func MergeProgress(prev, incoming model.ProgressVector) model.ProgressVector {
	n := len(prev)
	if len(incoming) > n {
		n = len(incoming)
	}

	merged := make(model.ProgressVector, n)
	for i := 0; i < n; i++ {
		a, b := prev.At(i), incoming.At(i)
		if b.Rank() > a.Rank() {
			merged[i] = b
		} else {
			merged[i] = a
		}
	}
	return merged
}

// GradeProgress 计算 0-100 的整数成绩：Achieved 计 1，InProgress 计 0.5，四舍五入（.5 进位）
// 以半分为单位做整数运算，避免浮点误差影响 .5 的进位
func GradeProgress(v model.ProgressVector) int {
	n := len(v)
	if n == 0 {
		return 0
	}

	halves := 0
	for i := range v {
		halves += v.At(i).Rank()
	}

	// round_half_up(100 * halves / (2n)) == floor((100*halves + n) / (2n))
	return (100*halves + n) / (2 * n)
}

// BestScore 返回历史最好成绩，existing 为空时直接取 new
func BestScore(existing *int, newScore int) int {
	if existing == nil || newScore > *existing {
		return newScore
	}
	return *existing
}
