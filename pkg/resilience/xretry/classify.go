package xretry

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"regexp"
	"strconv"
	"strings"
	"syscall"

	retry "github.com/avast/retry-go/v5"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Classifier 把一次失败的原始错误归类。
// 实现必须对非 nil 错误返回非 nil 的 *ClassifiedError。
type Classifier interface {
	Classify(err error) *ClassifiedError
}

// ClassifierFunc 函数适配器
type ClassifierFunc func(err error) *ClassifiedError

// Classify 实现 Classifier。
func (f ClassifierFunc) Classify(err error) *ClassifiedError {
	return f(err)
}

// DefaultClassifier 默认分类器，规则见 Classify。
var DefaultClassifier Classifier = ClassifierFunc(Classify)

// Classify 使用默认规则分类错误，nil 返回 nil。
//
// 类型判定顺序：
//  1. panic 恢复出的错误：KindUnknown，不可重试
//  2. 错误链中已有 *ClassifiedError：沿用其类型
//  3. context.Canceled：KindCanceled
//  4. 超时（context.DeadlineExceeded、os.ErrDeadlineExceeded、net.Error.Timeout()）
//  5. HTTP 状态码（HTTPStatusCoder）：5xx 为 KindServer，4xx 为 KindClient
//  6. gRPC 状态
//  7. 底层网络错误（*net.OpError、*net.DNSError、连接类 errno、io.ErrUnexpectedEOF）
//  8. 以上都不匹配时才检查错误文本（见 kindFromText）
//
// 可重试性：错误链中第一个 RetryableError 或 *ClassifiedError 的声明优先；retry-go 的 Unrecoverable 始终不可重试；
// 否则网络、超时、服务端错误可重试。
func Classify(err error) *ClassifiedError {
	if err == nil {
		return nil
	}

	var pe *PanicError
	if errors.As(err, &pe) {
		return &ClassifiedError{Kind: KindUnknown, Retryable: false, Err: err}
	}

	var kind Kind
	var prior *ClassifiedError
	if errors.As(err, &prior) {
		kind = prior.Kind
	} else {
		kind = detectKind(err)
	}
	retryable := kind.defaultRetryable()
	if explicit, ok := explicitRetryable(err); ok {
		retryable = explicit
	}
	if !retry.IsRecoverable(err) {
		retryable = false
	}
	return &ClassifiedError{Kind: kind, Retryable: retryable, Err: err}
}

// explicitRetryable 按错误链顺序（外层优先）查找第一个显式声明的可重试性：
// RetryableError 或已分类的 *ClassifiedError。
func explicitRetryable(err error) (bool, bool) {
	switch e := err.(type) {
	case nil:
		return false, false
	case *ClassifiedError:
		return e.Retryable, true
	case RetryableError:
		return e.Retryable(), true
	}
	switch u := err.(type) {
	case interface{ Unwrap() error }:
		return explicitRetryable(u.Unwrap())
	case interface{ Unwrap() []error }:
		for _, inner := range u.Unwrap() {
			if r, ok := explicitRetryable(inner); ok {
				return r, true
			}
		}
	}
	return false, false
}

func detectKind(err error) Kind {
	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}
	if isTimeout(err) {
		return KindTimeout
	}
	var sc HTTPStatusCoder
	if errors.As(err, &sc) {
		if kind, ok := kindFromHTTPStatus(sc.HTTPStatusCode()); ok {
			return kind
		}
	}
	if kind, ok := kindFromGRPC(err); ok {
		return kind
	}
	if isNetwork(err) {
		return KindNetwork
	}
	return kindFromText(err.Error())
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func isNetwork(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed)
}

// kindFromHTTPStatus 只识别 4xx/5xx，其他状态码交给后续规则。
func kindFromHTTPStatus(code int) (Kind, bool) {
	switch {
	case code >= 500 && code <= 599:
		return KindServer, true
	case code >= 400 && code <= 499:
		return KindClient, true
	default:
		return KindUnknown, false
	}
}

func kindFromGRPC(err error) (Kind, bool) {
	st, ok := status.FromError(err)
	if !ok || st == nil {
		return KindUnknown, false
	}
	switch st.Code() {
	case codes.OK:
		return KindUnknown, false
	case codes.Unavailable:
		return KindNetwork, true
	case codes.DeadlineExceeded:
		return KindTimeout, true
	case codes.Canceled:
		return KindCanceled, true
	case codes.Internal, codes.DataLoss, codes.Aborted, codes.ResourceExhausted:
		return KindServer, true
	case codes.Unknown:
		return KindUnknown, true
	default:
		return KindClient, true
	}
}

// 文本中的状态码只在以下形式中识别，避免把消息中任意出现的数字当成状态码：
//   - 状态行：HTTP/1.1 503
//   - 紧跟在 status/http*/code 之后：status 500、HttpException: 503、code=400
//   - 后接标准原因短语：500 Internal Server Error、502 Bad Gateway
var (
	statusLinePattern = regexp.MustCompile(`(?i)\bHTTP/\d(?:\.\d)?\s+([1-5]\d{2})\b`)
	statusWordPattern = regexp.MustCompile(`(?i)\b(?:status|http\w*|code)\b\D{0,16}?\b([1-5]\d{2})\b`)
	statusCodePattern = regexp.MustCompile(`\b([1-5]\d{2})\s+`)
)

var timeoutWords = []string{"timeout", "timed out", "deadline exceeded"}

var serverWords = []string{"server error", "service unavailable", "bad gateway"}

var networkWords = []string{"connection", "broken pipe", "no such host", "network is unreachable"}

// kindFromText 按状态码、超时、服务端短语、网络的顺序匹配。
// 文本中识别出的 4xx/5xx 优先于超时关键字。
func kindFromText(msg string) Kind {
	if code, ok := statusFromText(msg); ok {
		if kind, ok := kindFromHTTPStatus(code); ok {
			return kind
		}
	}
	lower := strings.ToLower(msg)
	if containsAny(lower, timeoutWords) {
		return KindTimeout
	}
	if containsAny(lower, serverWords) {
		return KindServer
	}
	if containsAny(lower, networkWords) {
		return KindNetwork
	}
	return KindUnknown
}

// statusFromText 返回文本中第一个 4xx/5xx 状态码；只有其他状态码时返回找到的第一个。
func statusFromText(msg string) (int, bool) {
	var first int
	for _, code := range textStatusCodes(msg) {
		if code >= 400 {
			return code, true
		}
		if first == 0 {
			first = code
		}
	}
	return first, first != 0
}

func textStatusCodes(msg string) []int {
	var codes []int
	for _, re := range []*regexp.Regexp{statusLinePattern, statusWordPattern} {
		for _, m := range re.FindAllStringSubmatch(msg, -1) {
			if code, err := strconv.Atoi(m[1]); err == nil {
				codes = append(codes, code)
			}
		}
	}
	for _, loc := range statusCodePattern.FindAllStringSubmatchIndex(msg, -1) {
		code, err := strconv.Atoi(msg[loc[2]:loc[3]])
		if err != nil {
			continue
		}
		phrase, rest := http.StatusText(code), msg[loc[1]:]
		if phrase != "" && len(rest) >= len(phrase) && strings.EqualFold(rest[:len(phrase)], phrase) {
			codes = append(codes, code)
		}
	}
	return codes
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
