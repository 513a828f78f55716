package generation

// bundle は定型の生成結果1種類を表す。
type bundle struct {
	narrative string
	cases     []generatedCase
}

type generatedCase struct {
	application    string
	module         string
	testType       string
	scenarioID     string
	scenario       string
	epic           string
	title          string
	description    string
	steps          []string
	expectedResult string
}

var loginBundle = bundle{
	narrative: "I've generated test cases for login functionality. They cover valid login for each user role, " +
		"invalid credential handling, and session behaviour. Each case includes detailed steps and an expected result.",
	cases: []generatedCase{
		{
			application: "FCH Application", module: "Login", testType: "Functional",
			scenarioID: "TS_01_01", scenario: "Testing Login Functionality", epic: "authentication",
			title:       "TS_01_01 - Verify Super Admin login with valid credentials",
			description: "Verify that Super Admin type user is able to login with valid Email and Password",
			steps: []string{
				"Go to Login Page",
				"Enter valid Email and password for Super Admin",
				"Click on Login button",
				"Verify user is able to login successfully",
			},
			expectedResult: "Super Admin type user should be able to login with valid Email and Password",
		},
		{
			application: "FCH Application", module: "Login", testType: "Functional",
			scenarioID: "TS_01_02", scenario: "Testing Login Functionality", epic: "authentication",
			title:       "TS_01_02 - Verify Admin login with valid credentials",
			description: "Verify that Admin type user is able to login with valid Email and Password",
			steps: []string{
				"Go to Login Page",
				"Enter valid Email and password for Admin",
				"Click on Login button",
				"Verify user is able to login successfully",
			},
			expectedResult: "Admin type user should be able to login with valid Email and Password",
		},
		{
			application: "FCH Application", module: "Login", testType: "Functional",
			scenarioID: "TS_01_03", scenario: "Testing Login Functionality", epic: "authentication",
			title:       "TS_01_03 - Verify invalid password handling",
			description: "Verify that user receives appropriate error message with invalid password",
			steps: []string{
				"Go to Login Page",
				"Enter valid Email",
				"Enter invalid password",
				"Click on Login button",
				"Verify error message is displayed",
			},
			expectedResult: "User should see error message for invalid password",
		},
	},
}

var passwordBundle = bundle{
	narrative: "I've created test cases for password reset functionality, covering the forgot password link, " +
		"email verification and setting a new password.",
	cases: []generatedCase{
		{
			application: "FCH Application", module: "Login", testType: "Functional",
			scenarioID: "TS_02_01", scenario: "Password Reset Functionality", epic: "authentication",
			title:       "TS_02_01 - Verify password reset with valid email",
			description: "Verify user is able to reset their password using \"Forgot Password?\" feature",
			steps: []string{
				"Go to Login Page",
				"Click on Forgot Password",
				"Enter valid Email address",
				"Click on Send Reset Link",
				"Check email for reset link",
				"Click on reset link",
				"Enter new password",
				"Confirm new password",
				"Submit the form",
				"Verify password is reset successfully",
			},
			expectedResult: "User should be able to reset their password using valid email",
		},
	},
}

var formBundle = bundle{
	narrative: "I've generated form validation test cases covering required fields, data formats, " +
		"input length limits and submit behaviour.",
	cases: []generatedCase{
		{
			application: "Web Application", module: "Forms", testType: "Functional",
			scenarioID: "TS_03_01", scenario: "Form Validation Testing", epic: "forms",
			title:       "TS_03_01 - Verify required field validation",
			description: "Verify that required fields show appropriate validation messages",
			steps: []string{
				"Navigate to the form",
				"Leave required fields empty",
				"Try to submit the form",
				"Verify validation messages appear",
				"Check that form is not submitted",
			},
			expectedResult: "Required field validation messages should be displayed and form should not submit",
		},
	},
}

