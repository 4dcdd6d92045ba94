package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrSessionInvalidated ErrCode = "SESSION_INVALIDATED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrTokenExpired       ErrCode = "TOKEN_EXPIRED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden          ErrCode = "FORBIDDEN"
	ErrStudentAccessOnly  ErrCode = "STUDENT_ACCESS_ONLY"
	ErrSupervisorOnly     ErrCode = "SUPERVISOR_ACCESS_ONLY"
	ErrNotExamParticipant ErrCode = "NOT_EXAM_PARTICIPANT"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound         ErrCode = "NOT_FOUND"
	ErrConflict         ErrCode = "CONFLICT"
	ErrDependencyExists ErrCode = "DEPENDENCY_EXISTS"

	// ─── Attempt state machine ─────────────────────────────────────────
	ErrWrongPhase      ErrCode = "WRONG_PHASE"
	ErrAlreadyDrawn    ErrCode = "ALREADY_DRAWN"
	ErrAlreadyStarted  ErrCode = "ALREADY_STARTED"
	ErrNotReady        ErrCode = "NOT_READY"
	ErrAlreadyDone     ErrCode = "ALREADY_SUBMITTED"
	ErrResetInProgress ErrCode = "RESET_IN_PROGRESS"
	ErrAttemptRunning  ErrCode = "ATTEMPT_RUNNING"
	ErrNoQuestionsLeft ErrCode = "NO_QUESTIONS_AVAILABLE"

	// ─── Media ─────────────────────────────────────────────────────────
	ErrFileRequired    ErrCode = "FILE_REQUIRED"
	ErrUnsupportedFile ErrCode = "UNSUPPORTED_FILE_TYPE"
	ErrFileTooLarge    ErrCode = "FILE_TOO_LARGE"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Mã sinh viên hoặc mật khẩu không đúng."
	case ErrSessionInvalidated:
		return "Phiên đăng nhập đã kết thúc. Vui lòng đăng nhập lại."
	case ErrTokenRequired:
		return "Yêu cầu token xác thực."
	case ErrTokenInvalid:
		return "Token xác thực không hợp lệ."
	case ErrTokenExpired:
		return "Token xác thực đã hết hạn."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "Bạn không có quyền truy cập tài nguyên này."
	case ErrStudentAccessOnly:
		return "Tài nguyên này chỉ dành cho sinh viên."
	case ErrSupervisorOnly:
		return "Tài nguyên này chỉ dành cho giám thị."
	case ErrNotExamParticipant:
		return "Bạn không thuộc danh sách thi của kỳ thi này."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Dữ liệu không hợp lệ. Vui lòng kiểm tra lại."
	case ErrInvalidID:
		return "Định dạng ID không hợp lệ."
	case ErrInvalidPayload:
		return "Nội dung yêu cầu không hợp lệ."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Không tìm thấy tài nguyên."
	case ErrConflict:
		return "Tài nguyên đã tồn tại."
	case ErrDependencyExists:
		return "Không thể xóa vì dữ liệu đang được sử dụng."

	// ─── Attempt state machine ─────────────────────────────────────────
	case ErrWrongPhase:
		return "Thao tác không hợp lệ ở giai đoạn hiện tại của bài thi."
	case ErrAlreadyDrawn:
		return "Bạn đã bốc câu hỏi rồi."
	case ErrAlreadyStarted:
		return "Bài thi đã được bắt đầu."
	case ErrNotReady:
		return "Bạn cần bốc câu hỏi trước khi bắt đầu."
	case ErrAlreadyDone:
		return "Bài thi đã được nộp."
	case ErrResetInProgress:
		return "Bài thi đang được đặt lại. Vui lòng thử lại sau."
	case ErrAttemptRunning:
		return "Không thể đặt lại khi sinh viên đang làm bài."
	case ErrNoQuestionsLeft:
		return "Kỳ thi này không còn câu hỏi khả dụng."

	// ─── Media ─────────────────────────────────────────────────────────
	case ErrFileRequired:
		return "Yêu cầu tải lên tệp."
	case ErrUnsupportedFile:
		return "Định dạng tệp không được hỗ trợ."
	case ErrFileTooLarge:
		return "Kích thước tệp vượt quá giới hạn."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Quá nhiều yêu cầu. Vui lòng thử lại sau."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "Đã xảy ra lỗi máy chủ."
	default:
		return "Đã xảy ra lỗi không xác định."
	}
}
