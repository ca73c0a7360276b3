// Package questionbank bundles the static fallback question sets served when
// the stored bank is missing or too small. Every quiz type has at least one
// question here, so a quiz can always start.
package questionbank

import (
	"context"

	"wp-quiz-service/internal/domain"
)

// Loader serves the bundled banks through the app.QuestionSource contract.
// Difficulty is ignored: the bundled sets are a single mixed pool per quiz
// type.
type Loader struct{}

func NewLoader() *Loader {
	return &Loader{}
}

func (l *Loader) Questions(_ context.Context, quizType domain.QuizType, _ domain.DifficultyLevel) ([]domain.Question, error) {
	switch quizType {
	case domain.QuizTypeTheme:
		return themeQuestions, nil
	default:
		return pluginQuestions, nil
	}
}

var pluginQuestions = []domain.Question{
	{
		ID:     "plugin-1",
		Prompt: "Which hook is used to enqueue scripts and styles in WordPress?",
		Options: []string{
			"init",
			"wp_enqueue_scripts",
			"wp_head",
			"admin_init",
		},
		CorrectOption: 1,
		Explanation:   "wp_enqueue_scripts is the proper hook to enqueue frontend scripts and styles. It ensures proper dependency handling and prevents duplicate loading.",
	},
	{
		ID:     "plugin-2",
		Prompt: "What function is used to register a custom post type in WordPress?",
		Options: []string{
			"add_post_type()",
			"create_post_type()",
			"register_post_type()",
			"new_post_type()",
		},
		CorrectOption: 2,
		Explanation:   "register_post_type() is the correct function to register custom post types. It should be called on the 'init' hook.",
	},
	{
		ID:     "plugin-3",
		Prompt: "Which of the following is the correct way to add a filter in WordPress?",
		Code: `// Option A
add_filter('the_content', 'my_function');

// Option B
apply_filter('the_content', 'my_function');`,
		Options: []string{
			"Option A",
			"Option B",
			"Both are correct",
			"Neither is correct",
		},
		CorrectOption: 0,
		Explanation:   "add_filter() attaches a callback to a filter hook. apply_filters() (note the plural) is what runs registered callbacks, not what registers them.",
	},
	{
		ID:     "plugin-4",
		Prompt: "What is the recommended way to sanitize user input before saving it to the database?",
		Options: []string{
			"strip_tags()",
			"sanitize_text_field()",
			"htmlspecialchars()",
			"addslashes()",
		},
		CorrectOption: 1,
		Explanation:   "sanitize_text_field() is the WordPress API for cleaning plain-text input. The PHP-level helpers miss WordPress-specific concerns.",
	},
	{
		ID:     "plugin-5",
		Prompt: "Which function verifies a nonce submitted from a form?",
		Options: []string{
			"check_nonce()",
			"wp_verify_nonce()",
			"validate_nonce()",
			"nonce_check()",
		},
		CorrectOption: 1,
		Explanation:   "wp_verify_nonce() validates the nonce value. Pair it with wp_nonce_field() on the form side.",
	},
	{
		ID:     "plugin-6",
		Prompt: "How should a plugin run code when it is activated?",
		Code: `register_???_hook(__FILE__, 'my_plugin_setup');`,
		Options: []string{
			"register_init_hook",
			"register_activation_hook",
			"register_enable_hook",
			"register_startup_hook",
		},
		CorrectOption: 1,
		Explanation:   "register_activation_hook() runs a callback once when the plugin is activated, typically used for setting up options or database tables.",
	},
}

var themeQuestions = []domain.Question{
	{
		ID:     "theme-1",
		Prompt: "Which file is required in every WordPress theme?",
		Options: []string{
			"functions.php",
			"index.php",
			"header.php",
			"style.css",
		},
		CorrectOption: 3,
		Explanation:   "style.css is the only required file in a WordPress theme. It must contain the theme header comment with theme information.",
	},
	{
		ID:     "theme-2",
		Prompt: "What function is used to register a navigation menu in WordPress themes?",
		Options: []string{
			"add_menu()",
			"register_nav_menus()",
			"create_menu()",
			"wp_nav_menu()",
		},
		CorrectOption: 1,
		Explanation:   "register_nav_menus() registers menu locations. wp_nav_menu() is used to display menus, not register them.",
	},
	{
		ID:     "theme-3",
		Prompt: "Which template file displays a single blog post?",
		Options: []string{
			"post.php",
			"single.php",
			"blog.php",
			"article.php",
		},
		CorrectOption: 1,
		Explanation:   "single.php is the template for individual posts. WordPress follows a specific template hierarchy.",
	},
	{
		ID:     "theme-4",
		Prompt: "What is the correct way to include the header in a theme template?",
		Code: `// Which function to use?
??? ;`,
		Options: []string{
			"include('header.php')",
			"get_header()",
			"require_header()",
			"load_header()",
		},
		CorrectOption: 1,
		Explanation:   "get_header() loads header.php and allows for custom headers via get_header('custom').",
	},
	{
		ID:     "theme-5",
		Prompt: "Which function prints the main content of a post inside the loop?",
		Options: []string{
			"the_content()",
			"get_content()",
			"post_content()",
			"echo_content()",
		},
		CorrectOption: 0,
		Explanation:   "the_content() outputs the post content with filters applied. get_the_content() returns it without echoing.",
	},
	{
		ID:     "theme-6",
		Prompt: "Where should theme feature support (post thumbnails, custom logo) be declared?",
		Options: []string{
			"style.css",
			"functions.php on the after_setup_theme hook",
			"index.php before the loop",
			"wp-config.php",
		},
		CorrectOption: 1,
		Explanation:   "add_theme_support() calls belong in functions.php on after_setup_theme, which fires before init during theme load.",
	},
}
