package main

type Profile struct {
	Name     string     `json:"name"`
	Title    string     `json:"title"`
	Location string     `json:"location"`
	Email    string     `json:"email"`
	About    string     `json:"about"`
	Social   []Link     `json:"social"`
	Resume   Link       `json:"resume"`
	Focus    []Strength `json:"focus"`
}

type Link struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

type Strength struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type Experience struct {
	ID           int      `json:"id"`
	Title        string   `json:"title"`
	Company      string   `json:"company"`
	Date         string   `json:"date"`
	Location     string   `json:"location,omitempty"`
	Description  []string `json:"description"`
	Technologies []string `json:"technologies,omitempty"`
}

type Project struct {
	ID           int      `json:"id"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Technologies []string `json:"technologies"`
	GithubLink   string   `json:"githubLink,omitempty"`
	LiveLink     string   `json:"liveLink,omitempty"`
	Featured     bool     `json:"featured"`
	Category     string   `json:"category"`
	Status       string   `json:"status"`
}

type SkillCategory struct {
	Name   string   `json:"name"`
	Skills []string `json:"skills"`
}

type Certification struct {
	ID            int    `json:"id"`
	Title         string `json:"title"`
	Platform      string `json:"platform"`
	Date          string `json:"date"`
	CredentialURL string `json:"credentialUrl,omitempty"`
}

var (
	AboutMe = `I'm a full stack developer who enjoys turning rough ideas into fast, dependable products.
	Most of my work sits between Java and Spring Boot services and React or Angular front ends,
	and I care about the boring parts too: caching, pagination, CI pipelines and clean APIs.`

	profile = Profile{
		Name:     "Kamal Kiran Polisetty",
		Title:    "Full Stack Developer",
		Location: "Austin, TX",
		Email:    "kamalkiranpolisetty@gmail.com",
		About:    AboutMe,
		Social: []Link{
			{Label: "GitHub", URL: "https://github.com/kamalkiranpolisetty"},
			{Label: "LinkedIn", URL: "https://www.linkedin.com/in/kamalkiranpolisetty"},
		},
		Resume: Link{Label: "Kamal_Kiran_Polisetty_Resume.pdf", URL: "/resume.pdf"},
		Focus: []Strength{
			{"Frontend Engineering", "Building responsive, fast UIs using Angular and React with reusable components and optimized rendering."},
			{"Backend Development", "Java, Spring Boot, REST APIs, authentication, authorization and microservice architecture."},
			{"Performance Optimization", "Caching, pagination, lazy loading and efficient data flows across the stack."},
			{"System Integration", "MuleSoft, CloudHub, DataWeave and secure API integrations for enterprise workflows."},
			{"DevOps & CI/CD", "Docker, Jenkins, Git and automated pipelines for fast, reliable deployments."},
		},
	}

	experiences = []Experience{
		{
			ID:       1,
			Title:    "Associate Software Engineer",
			Company:  "Capgemini",
			Date:     "Jun 2022 – Jul 2023",
			Location: "Bangalore, India",
			Description: []string{
				"Developed and optimized an internal management system for Nokia using Spring Boot, Angular, and MySQL.",
				"Implemented JWT authentication and role-based authorization improving security and API integrity.",
				"Optimized backend APIs using caching, pagination, and lazy loading resulting in 35% faster response times.",
				"Contributed to CI/CD using Git, Maven, Docker and Jenkins enabling rapid automated deployments.",
			},
			Technologies: []string{"Java", "Spring Boot", "Spring Security", "JWT", "MySQL", "Angular", "Docker", "Jenkins"},
		},
		{
			ID:       2,
			Title:    "Software Intern",
			Company:  "Capgemini",
			Date:     "Feb 2022 – Apr 2022",
			Location: "Bangalore, India",
			Description: []string{
				"Created Java-based integration workflows and REST APIs.",
				"Developed MuleSoft-based API flows using DataWeave for transformations.",
				"Configured CloudHub APIs with OAuth2 and rate-limiting security policies.",
			},
			Technologies: []string{"Java", "Spring Boot", "MuleSoft", "CloudHub", "DataWeave", "OAuth2"},
		},
		{
			ID:       3,
			Title:    "Web Developer Intern",
			Company:  "Cureeya",
			Date:     "Jun 2021 – Sep 2021",
			Location: "Bangalore, India",
			Description: []string{
				"Developed patient dashboards and scheduling features using React.",
				"Built Java backend services for authentication and secure data access.",
				"Improved rendering performance by 30% with React optimizations.",
			},
			Technologies: []string{"React", "JavaScript", "Java", "Spring Boot"},
		},
	}

	projects = []Project{
		{
			ID:           1,
			Title:        "BugBattle – Multiplayer Debugging Game",
			Description:  "A real-time multiplayer game where players race to fix AI-injected bugs in code snippets, with live rooms, spectators and a global leaderboard.",
			Technologies: []string{"React", "TypeScript", "Supabase", "PostgreSQL", "Tailwind CSS", "Vite"},
			GithubLink:   "https://github.com/KamalKiranPolisetty/BugBattle",
			Featured:     true,
			Category:     "web",
			Status:       "in-progress",
		},
		{
			ID:           2,
			Title:        "AI Research Agent",
			Description:  "A research assistant built on Spring Boot, Spring AI, LangChain and RAG pipelines for automated web search, summarization and knowledge synthesis.",
			Technologies: []string{"Spring Boot", "Spring AI", "LangChain", "LangGraph", "RAG", "React"},
			GithubLink:   "https://github.com/KamalKiranPolisetty/AI-Research-Agent",
			Featured:     true,
			Category:     "web",
			Status:       "completed",
		},
		{
			ID:           3,
			Title:        "StudentLife360 – Campus Management Platform",
			Description:  "A platform for university students to manage textbooks, roommates, meal plans, transportation and campus activities, with Stripe payments.",
			Technologies: []string{"React", "Node.js", "Express.js", "MongoDB", "Stripe"},
			Featured:     false,
			Category:     "web",
			Status:       "completed",
		},
	}

	skillCategories = []SkillCategory{
		{Name: "Frontend Development", Skills: []string{"React", "Angular", "React Native", "JavaScript", "TypeScript", "HTML5", "CSS3", "Tailwind CSS"}},
		{Name: "Backend Development", Skills: []string{"Java", "Spring Boot", "Spring Security", "REST APIs", "GraphQL", "Microservices", "Node.js", "Python", "FastAPI"}},
		{Name: "Database & Storage", Skills: []string{"MySQL", "PostgreSQL", "MongoDB", "Redis", "Elasticsearch", "Data Modeling"}},
		{Name: "AI, ML & Data Science", Skills: []string{"LangChain", "LangGraph", "RAG Pipelines", "Pandas", "NumPy", "Scikit-Learn", "PyTorch"}},
		{Name: "DevOps & Tools", Skills: []string{"Docker", "Jenkins", "Git", "Maven", "AWS", "CI/CD"}},
	}

	certifications = []Certification{
		{ID: 1, Title: "Web Development Masterclass", Platform: "Udemy", Date: "Nov 2025", CredentialURL: "https://ude.my/UC-8b558f33-6df5-4647-a5f3-887af073a502"},
		{ID: 2, Title: "Docker Foundations Professional Certificate", Platform: "LinkedInLearning", Date: "May 2025"},
		{ID: 3, Title: "The Complete 2023 Web Development Bootcamp", Platform: "Udemy", Date: "Jul 2023", CredentialURL: "https://ude.my/UC-742f1c9e-a31a-4796-a375-d7c1b9d9fc67"},
		{ID: 4, Title: "Machine Learning with AI using Python", Platform: "Quantum Learnings", Date: "Aug 2021"},
		{ID: 5, Title: "Introduction to Artificial Intelligence (AI)", Platform: "IBM", Date: "Sep 2020", CredentialURL: "https://www.coursera.org/account/accomplishments/records/GUZX6LKYDH8L"},
	}
)
