package xretry

import "fmt"

// Result 重试序列的结果：Success 或 Failure 二选一。
//
// 字段不导出，只能通过 success/failure 构造，保证两个分支不会同时有值。
// Attempts 计入所有尝试，包括最后失败的那一次。
type Result[T any] struct {
	value    T
	err      *ClassifiedError
	attempts int
}

func success[T any](value T, attempts int) Result[T] {
	return Result[T]{value: value, attempts: attempts}
}

func failure[T any](err *ClassifiedError, attempts int) Result[T] {
	if err == nil {
		err = &ClassifiedError{Kind: KindUnknown}
	}
	return Result[T]{err: err, attempts: attempts}
}

// OK 报告结果是否为 Success。
func (r Result[T]) OK() bool {
	return r.err == nil
}

// Value 返回成功值，Failure 时返回零值。
func (r Result[T]) Value() T {
	return r.value
}

// Err 返回失败原因，Success 时返回 nil。
func (r Result[T]) Err() *ClassifiedError {
	return r.err
}

// Attempts 返回实际执行的尝试次数。
func (r Result[T]) Attempts() int {
	return r.attempts
}

// Unwrap 以 (T, error) 形式返回结果，Success 时 error 为 nil 接口。
func (r Result[T]) Unwrap() (T, error) {
	if r.err != nil {
		var zero T
		return zero, r.err
	}
	return r.value, nil
}

// String 返回结果的可读表示，用于日志和调试。
func (r Result[T]) String() string {
	if r.OK() {
		return fmt.Sprintf("Success(%v, attempts=%d)", r.value, r.attempts)
	}
	return fmt.Sprintf("Failure(%s: %v, attempts=%d)", r.err.Kind, r.err, r.attempts)
}
