package config

// Selectors is the full selector map for both external systems. Selector
// strings are data, not design: every control the automation touches is
// looked up through this table, and a YAML config file can override any
// entry when either system reshapes its markup.
type Selectors struct {
	// Source listing.
	SourceRow      string `yaml:"source_row"`
	SourceName     string `yaml:"source_name"`
	SourcePhone    string `yaml:"source_phone"`
	SourceTime     string `yaml:"source_time"`
	SourceSkeleton string `yaml:"source_skeleton"`

	// Target login.
	LoginUser   string `yaml:"login_user"`
	LoginPass   string `yaml:"login_pass"`
	LoginSubmit string `yaml:"login_submit"`

	// Booking dialog.
	BookingOpen       string `yaml:"booking_open"`
	Dialog            string `yaml:"dialog"`
	PatientSearch     string `yaml:"patient_search"`
	Autocomplete      string `yaml:"autocomplete"`
	PatientManualOpen string `yaml:"patient_manual_open"`
	PatientName       string `yaml:"patient_name"`
	PatientBirth      string `yaml:"patient_birth"`
	PatientRegister   string `yaml:"patient_register"`
	PhoneMid          string `yaml:"phone_mid"`
	PhoneLast         string `yaml:"phone_last"`

	// Visit mode and date/time selection.
	ModeScheduled  string `yaml:"mode_scheduled"`
	ModeWalkIn     string `yaml:"mode_walk_in"`
	TimeControl    string `yaml:"time_control"`
	DatePickerOpen string `yaml:"date_picker_open"`
	DayByLabel     string `yaml:"day_by_label"` // %s = composed day label
	DayLabel       string `yaml:"day_label"`    // %s month, %s day
	DayCells       string `yaml:"day_cells"`
	DayOutside     string `yaml:"day_outside"`  // class marker for neighboring-month cells
	SlotByText     string `yaml:"slot_by_text"` // %s = HH:MM
	SlotInputs     string `yaml:"slot_inputs"`
	SlotLabels     string `yaml:"slot_labels"`
	TimeConfirm    string `yaml:"time_confirm"`

	// Treatment item dropdown.
	TreatmentDropdown string `yaml:"treatment_dropdown"`
	TreatmentOption   string `yaml:"treatment_option"` // %s = option text

	Save string `yaml:"save"`
}

func defaultSelectors() Selectors {
	return Selectors{
		SourceRow:      `table.app-table tr.reservation-info-tr`,
		SourceName:     `td:nth-child(3) p.two-lines-text`,
		SourcePhone:    `td:nth-child(3) .subscription`,
		SourceTime:     `td:nth-child(6) p.one-lines-text`,
		SourceSkeleton: `.skeleton-ui`,

		LoginUser:   `input[name="username"]`,
		LoginPass:   `input[name="password"]`,
		LoginSubmit: `//button[contains(., "로그인")]`,

		BookingOpen:       `//button[contains(., "내원등록")]`,
		Dialog:            `div[aria-label="hospital-patient-add-modal"]`,
		PatientSearch:     `input[placeholder="이름, 전화번호, 차트번호를 입력해주세요."]`,
		Autocomplete:      `#autocomplete-results > li:nth-child(1)`,
		PatientManualOpen: `//button[contains(., "환자 정보 입력")]`,
		PatientName:       `input[placeholder="이름을 입력해주세요"]`,
		PatientBirth:      `input[name="dateOfBirth"]`,
		PatientRegister:   `input[name="registerNumber"]`,
		PhoneMid:          `input[name="phone"]`,
		PhoneLast:         `input[tabindex="5"]`,

		ModeScheduled:  `//label[contains(., "예약접수")]`,
		ModeWalkIn:     `//label[contains(., "현장접수")]`,
		TimeControl:    `.visit-time-select`,
		DatePickerOpen: `input[name="visitDate"]`,
		DayByLabel:     `td[aria-label="%s"]`,
		DayLabel:       `%s월 %s일`,
		DayCells:       `.calendar-day`,
		DayOutside:     `outside-month`,
		SlotByText:     `//button[normalize-space() = "%s"]`,
		SlotInputs:     `.visit-time-select input`,
		SlotLabels:     `.visit-time-select label`,
		TimeConfirm:    `//button[contains(., "시간확정")]`,

		TreatmentDropdown: `//div[contains(text(), "진료항목")]/following-sibling::span[1]/following-sibling::div[1]`,
		TreatmentOption:   `//div[normalize-space() = "%s"]`,

		Save: `//button[contains(., "등록완료")]`,
	}
}
