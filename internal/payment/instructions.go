package payment

import "strings"

const (
	MethodCOD   = "COD"
	MethodVNPay = "VNPAY"
	MethodMoMo  = "MOMO"
)

// ProviderErrorMessage is shown to shoppers whenever a gateway call fails.
const ProviderErrorMessage = "Không thể kết nối cổng thanh toán, vui lòng thử lại."

var InstructionMap = map[string][]string{
	MethodCOD: {
		"Đơn hàng sẽ được giao đến địa chỉ của bạn",
		"Chuẩn bị {{amount}} tiền mặt khi nhân viên giao hàng đến",
		"Thanh toán trực tiếp cho nhân viên giao hàng",
		"Giữ lại biên nhận để đối chiếu khi cần",
	},

	MethodVNPay: {
		"Bạn sẽ được chuyển đến cổng thanh toán VNPay",
		"Chọn ngân hàng hoặc quét mã VNPAY-QR bằng ứng dụng ngân hàng",
		"Kiểm tra số tiền {{amount}} và mã giao dịch {{txn_ref}}",
		"Xác nhận thanh toán bằng mã OTP",
		"Hoàn tất thanh toán trong vòng 15 phút, đơn hàng chưa thanh toán sẽ tự động hủy sau 60 phút",
	},

	MethodMoMo: {
		"Bạn sẽ được chuyển đến trang thanh toán MoMo",
		"Mở ứng dụng MoMo và quét mã QR hoặc xác nhận trên trình duyệt",
		"Kiểm tra số tiền {{amount}} và mã giao dịch {{txn_ref}}",
		"Nhập mã PIN MoMo để hoàn tất",
	},
}

func GetInstructions(method string) []string {
	if steps, ok := InstructionMap[method]; ok {
		return steps
	}

	return []string{
		"Làm theo hướng dẫn thanh toán hiển thị trên trang này",
	}
}

type InstructionVars map[string]string

func InjectVariables(
	steps []string,
	vars InstructionVars,
) []string {
	result := make([]string, 0, len(steps))

	for _, step := range steps {
		updated := step
		for key, value := range vars {
			updated = strings.ReplaceAll(
				updated,
				"{{"+key+"}}",
				value,
			)
		}
		result = append(result, updated)
	}

	return result
}
