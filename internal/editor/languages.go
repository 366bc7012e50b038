// Package editor is the editor surface controller: the language catalog
// and boilerplates, buffer geometry helpers, the language-switch decision,
// debounced inline completion and the typewriter animation that replays
// AI-modified code into the buffer.
package editor

import (
	"fmt"
	"slices"
	"strings"
)

// DefaultLanguage is selected for new sessions.
const DefaultLanguage = "javascript"

// Language is one entry of the editor's language selector.
type Language struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

var editorLanguages = []Language{
	{ID: "javascript", Name: "JavaScript"},
	{ID: "python", Name: "Python"},
	{ID: "java", Name: "Java"},
	{ID: "html", Name: "HTML"},
	{ID: "css", Name: "CSS"},
}

// catalogOnly are languages a saved snippet may carry without being
// selectable in the editor.
var catalogOnly = []Language{
	{ID: "typescript", Name: "TypeScript"},
	{ID: "cpp", Name: "C++"},
	{ID: "json", Name: "JSON"},
}

// Languages returns the editor's selectable languages in display order.
func Languages() []Language {
	return slices.Clone(editorLanguages)
}

// Lookup finds an editor language by ID.
func Lookup(id string) (Language, bool) {
	for _, l := range editorLanguages {
		if l.ID == id {
			return l, true
		}
	}
	return Language{}, false
}

// IsCatalogLanguage reports whether id is valid on a saved snippet.
func IsCatalogLanguage(id string) bool {
	if _, ok := Lookup(id); ok {
		return true
	}
	return slices.ContainsFunc(catalogOnly, func(l Language) bool { return l.ID == id })
}

// DisplayName returns the human name of id, or id itself when unknown.
func DisplayName(id string) string {
	if l, ok := Lookup(id); ok {
		return l.Name
	}
	return id
}

// Boilerplate returns the starter program for a language.
func Boilerplate(id string) string {
	if b, ok := boilerplates[id]; ok {
		return b
	}
	return fmt.Sprintf("// Welcome to %s!\n// Start coding here...", id)
}

// DefaultCode is shown when a session has never stored any code.
const DefaultCode = `function fibonacci(n) {
  if (n <= 1) return n;
  return fibonacci(n - 1) + fibonacci(n - 2);
}

console.log(fibonacci(10));`

var boilerplates = map[string]string{
	"javascript": strings.Join([]string{
		"// Welcome to JavaScript!",
		"// This is a sample JavaScript code",
		"",
		"function greetUser(name) {",
		"  return `Hello, ${name}! Welcome to JavaScript programming.`;",
		"}",
		"",
		"// Example usage",
		`const userName = "Developer";`,
		"const greeting = greetUser(userName);",
		"console.log(greeting);",
		"",
		"// You can start coding here...",
	}, "\n"),

	"python": `# Welcome to Python!
# This is a sample Python code

def greet_user(name):
    """
    Function to greet a user
    """
    return f"Hello, {name}! Welcome to Python programming."

# Example usage
def main():
    user_name = "Developer"
    greeting = greet_user(user_name)
    print(greeting)
    
    # You can start coding here...

if __name__ == "__main__":
    main()`,

	"java": `// Welcome to Java!
// This is a sample Java code

public class HelloWorld {
    
    public static void main(String[] args) {
        System.out.println("Hello, Developer! Welcome to Java programming.");
        
        // Create an instance and call methods
        HelloWorld app = new HelloWorld();
        String greeting = app.greetUser("Developer");
        System.out.println(greeting);
        
        // You can start coding here...
    }
    
    public String greetUser(String name) {
        return "Hello, " + name + "! Welcome to Java programming.";
    }
}`,

	"html": `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Welcome to HTML</title>
    <style>
        body {
            font-family: Arial, sans-serif;
            max-width: 800px;
            margin: 0 auto;
            padding: 20px;
            line-height: 1.6;
        }
        .welcome {
            background: linear-gradient(135deg, #667eea 0%, #764ba2 100%);
            color: white;
            padding: 20px;
            border-radius: 10px;
            text-align: center;
        }
    </style>
</head>
<body>
    <div class="welcome">
        <h1>Welcome to HTML!</h1>
        <p>This is a sample HTML document. Start building your web page here.</p>
    </div>
    
    <h2>Getting Started</h2>
    <p>You can start coding your HTML here...</p>
    
    <script>
        console.log("Hello from HTML! Ready to code.");
    </script>
</body>
</html>`,

	"css": `/* Welcome to CSS! */
/* This is a sample CSS stylesheet */

/* Reset and base styles */
* {
    margin: 0;
    padding: 0;
    box-sizing: border-box;
}

body {
    font-family: 'Arial', sans-serif;
    line-height: 1.6;
    color: #333;
    background: linear-gradient(135deg, #667eea 0%, #764ba2 100%);
    min-height: 100vh;
    display: flex;
    align-items: center;
    justify-content: center;
}

.welcome-container {
    background: white;
    padding: 40px;
    border-radius: 15px;
    box-shadow: 0 10px 30px rgba(0, 0, 0, 0.3);
    text-align: center;
    max-width: 500px;
}

.welcome-title {
    color: #667eea;
    font-size: 2.5rem;
    margin-bottom: 20px;
    font-weight: bold;
}

.welcome-text {
    font-size: 1.2rem;
    color: #666;
    margin-bottom: 30px;
}

/* You can start styling here... */`,
}
