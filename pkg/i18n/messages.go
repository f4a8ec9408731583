package i18n

var russian = map[string]string{
	KeyRequired:      "Это поле обязательно для заполнения",
	KeyTypeEmail:     "Введите корректный email адрес",
	KeyTypeURL:       "Введите корректный URL",
	KeyTypeTel:       "Введите корректный номер телефона",
	KeyTypeNumber:    "Введите число",
	KeyTypeCard:      "Введите корректный номер карты",
	KeyTypeDate:      "Введите дату в формате ГГГГ-ММ-ДД",
	KeyMinLength:     "Минимальное количество символов: %d",
	KeyMaxLength:     "Максимальное количество символов: %d",
	KeyMin:           "Значение должно быть не меньше %v",
	KeyMax:           "Значение должно быть не больше %v",
	KeyPattern:       "Значение не соответствует требуемому формату",
	KeyInvalid:       "Некорректное значение",
	KeyTaken:         "Это значение уже занято",
	KeyCheckFailed:   "Не удалось проверить значение, попробуйте позже",
	KeyStepShown:     "Шаг %d из %d: %s",
	KeyStepErrors:    "Исправьте ошибки в форме. Количество ошибок: %d",
	KeyReview:        "Проверьте введённые данные перед отправкой",
	KeySubmitSuccess: "Форма успешно отправлена",
	KeySubmitFailure: "Не удалось отправить форму: %s",
	KeySubmitPending: "Отправка формы",
	KeyFormReset:     "Форма очищена",
	KeyNetworkError:  "Сервер недоступен, попробуйте позже",

	KeyActionPrompt: "Что дальше?",
	KeyActionNext:   "Далее",
	KeyActionBack:   "Назад",
	KeyActionSubmit: "Отправить",
	KeyActionReset:  "Очистить форму",
	KeyActionQuit:   "Выйти",
}

var english = map[string]string{
	KeyRequired:      "This field is required",
	KeyTypeEmail:     "Enter a valid email address",
	KeyTypeURL:       "Enter a valid URL",
	KeyTypeTel:       "Enter a valid phone number",
	KeyTypeNumber:    "Enter a number",
	KeyTypeCard:      "Enter a valid card number",
	KeyTypeDate:      "Enter a date as YYYY-MM-DD",
	KeyMinLength:     "Use at least %d characters",
	KeyMaxLength:     "Use at most %d characters",
	KeyMin:           "Value must be at least %v",
	KeyMax:           "Value must be at most %v",
	KeyPattern:       "Value does not match the required format",
	KeyInvalid:       "Invalid value",
	KeyTaken:         "This value is already taken",
	KeyCheckFailed:   "Could not verify the value, try again later",
	KeyStepShown:     "Step %d of %d: %s",
	KeyStepErrors:    "Fix the errors in the form. Errors: %d",
	KeyReview:        "Review your answers before submitting",
	KeySubmitSuccess: "Form submitted",
	KeySubmitFailure: "Could not submit the form: %s",
	KeySubmitPending: "Submitting form",
	KeyFormReset:     "Form cleared",
	KeyNetworkError:  "The server is unreachable, try again later",

	KeyActionPrompt: "What next?",
	KeyActionNext:   "Next",
	KeyActionBack:   "Back",
	KeyActionSubmit: "Submit",
	KeyActionReset:  "Clear form",
	KeyActionQuit:   "Quit",
}
