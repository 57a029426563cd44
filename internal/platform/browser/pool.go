package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/A2Data/auto-douyin/internal/config"
	"github.com/A2Data/auto-douyin/internal/utils"

	"github.com/playwright-community/playwright-go"
)

// Pool 浏览器池，复用浏览器实例与上下文，发布任务串行时通常只有一个实例
type Pool struct {
	maxBrowsers int
	maxContexts int
	browsers    []*PooledBrowser
	mutex       sync.RWMutex
}

// PooledBrowser 池化浏览器
type PooledBrowser struct {
	browser  playwright.Browser
	contexts []*PooledContext
	lastUsed time.Time
	inUse    int
	mutex    sync.Mutex
}

// PooledContext 封装的浏览器上下文
type PooledContext struct {
	context    playwright.BrowserContext
	page       playwright.Page
	cookiePath string
	createdAt  time.Time
	lastUsed   time.Time
	parent     *PooledBrowser
	platform   string // 来源标识，用于日志
}

// ContextOptions 上下文选项
type ContextOptions struct {
	UserAgent    string
	Viewport     *playwright.Size
	Locale       string
	TimezoneId   string
	Geolocation  *playwright.Geolocation
	ExtraHeaders map[string]string
	// 反爬相关选项
	EnableAntiDetect  bool // 启用反检测
	EnableRandomDelay bool // 启用随机延迟
	HumanLikeBehavior bool // 模拟人类行为
}

// DefaultContextOptions 返回默认上下文选项（带反爬配置）
func DefaultContextOptions() *ContextOptions {
	return &ContextOptions{
		EnableAntiDetect:  true,
		EnableRandomDelay: true,
		HumanLikeBehavior: true,
	}
}

// PoolConfig 浏览器池容量配置
type PoolConfig struct {
	MaxBrowsers           int
	MaxContextsPerBrowser int
}

// LoadPoolConfig 从环境变量加载池容量，未设置时用保守默认值
func LoadPoolConfig() PoolConfig {
	return PoolConfig{
		MaxBrowsers:           envInt("AUTODOUYIN_MAX_BROWSERS", 2),
		MaxContextsPerBrowser: envInt("AUTODOUYIN_MAX_CONTEXTS", 5),
	}
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

// NewPool 创建浏览器池
func NewPool(maxBrowsers, maxContexts int) *Pool {
	return &Pool{
		maxBrowsers: maxBrowsers,
		maxContexts: maxContexts,
		browsers:    make([]*PooledBrowser, 0),
	}
}

// NewPoolFromConfig 从配置创建浏览器池
func NewPoolFromConfig() *Pool {
	poolConfig := LoadPoolConfig()
	return NewPool(poolConfig.MaxBrowsers, poolConfig.MaxContextsPerBrowser)
}

var (
	defaultPool     *Pool
	defaultPoolOnce sync.Once
)

// GetDefaultPool 返回进程级共享浏览器池
func GetDefaultPool() *Pool {
	defaultPoolOnce.Do(func() {
		defaultPool = NewPoolFromConfig()
	})
	return defaultPool
}

// GetContext 获取浏览器上下文，cookiePath 存在时会作为存储状态载入
func (p *Pool) GetContext(ctx context.Context, cookiePath string, options *ContextOptions) (*PooledContext, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if options == nil {
		options = DefaultContextOptions()
	}

	// 如果启用反检测，生成随机指纹
	if options.EnableAntiDetect {
		options = p.generateRandomFingerprint(options)
	}

	// 1. 尝试复用现有上下文
	for _, browser := range p.browsers {
		if pooledCtx := browser.getIdleContext(cookiePath); pooledCtx != nil {
			return pooledCtx, nil
		}
	}

	// 2. 创建新上下文
	browser, err := p.getOrCreateBrowser()
	if err != nil {
		return nil, err
	}

	return browser.createContext(cookiePath, options)
}

// generateRandomFingerprint 生成随机浏览器指纹
func (p *Pool) generateRandomFingerprint(baseOptions *ContextOptions) *ContextOptions {
	chromeVersions := []string{"120", "121", "122", "123", "124", "125"}
	version := chromeVersions[rand.Intn(len(chromeVersions))]

	// 随机视口（在合理范围内变化）
	width := 1920 + rand.Intn(100) - 50
	height := 1080 + rand.Intn(100) - 50

	// 随机地理位置（北京附近）
	lat := 39.9042 + (rand.Float64()-0.5)*0.1
	lng := 116.4074 + (rand.Float64()-0.5)*0.1

	options := &ContextOptions{
		UserAgent: fmt.Sprintf(
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/%s.0.0.0 Safari/537.36",
			version,
		),
		Viewport: &playwright.Size{
			Width:  width,
			Height: height,
		},
		Locale:     "zh-CN",
		TimezoneId: "Asia/Shanghai",
		Geolocation: &playwright.Geolocation{
			Latitude:  lat,
			Longitude: lng,
		},
		ExtraHeaders: map[string]string{
			"Accept-Language":           "zh-CN,zh;q=0.9,en;q=0.8",
			"Sec-Ch-Ua":                 fmt.Sprintf(`"Not_A Brand";v="8", "Chromium";v="%s", "Google Chrome";v="%s"`, version, version),
			"Sec-Ch-Ua-Mobile":          "?0",
			"Sec-Ch-Ua-Platform":        `"Windows"`,
			"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
			"Accept-Encoding":           "gzip, deflate, br",
			"Upgrade-Insecure-Requests": "1",
		},
		EnableAntiDetect:  baseOptions.EnableAntiDetect,
		EnableRandomDelay: baseOptions.EnableRandomDelay,
		HumanLikeBehavior: baseOptions.HumanLikeBehavior,
	}

	return options
}

// Close 关闭浏览器池
func (p *Pool) Close() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	for _, browser := range p.browsers {
		for _, ctx := range browser.contexts {
			ctx.Close()
		}
		if err := browser.browser.Close(); err != nil {
			utils.Warn(fmt.Sprintf("[-] 关闭浏览器失败: %v", err))
		}
	}

	p.browsers = make([]*PooledBrowser, 0)
	return nil
}

// getOrCreateBrowser 获取或创建浏览器实例
func (p *Pool) getOrCreateBrowser() (*PooledBrowser, error) {
	for _, b := range p.browsers {
		if b.canCreateContext(p.maxContexts) {
			return b, nil
		}
	}

	if len(p.browsers) < p.maxBrowsers {
		browser, err := p.launchBrowser()
		if err != nil {
			return nil, err
		}

		pooled := &PooledBrowser{
			browser:  browser,
			contexts: make([]*PooledContext, 0),
		}
		p.browsers = append(p.browsers, pooled)
		return pooled, nil
	}

	return nil, fmt.Errorf("max browsers reached")
}

// launchBrowser 启动浏览器
func (p *Pool) launchBrowser() (playwright.Browser, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright failed: %w", err)
	}

	chromePath := findLocalChrome()

	headless := false
	if config.Config != nil {
		headless = config.Config.Headless
	}

	launchOptions := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(headless),
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--disable-web-security",
			"--no-sandbox",
			"--disable-setuid-sandbox",
			"--disable-dev-shm-usage",
			"--window-size=1920,1080",
			"--window-position=0,0",
			"--start-maximized",
			"--disable-infobars",
			"--disable-extensions",
			"--disable-default-apps",
			"--disable-background-networking",
			"--disable-sync",
			"--disable-translate",
			"--disable-popup-blocking",
			"--disable-features=IsolateOrigins,site-per-process,SameSiteByDefaultCookies,CookiesWithoutSameSiteMustBeSecure",
			"--disable-site-isolation-trials",
		},
	}

	if chromePath != "" {
		launchOptions.ExecutablePath = playwright.String(chromePath)
		utils.Info("[-] 浏览器池使用本地 Chrome")
	}

	browser, err := pw.Chromium.Launch(launchOptions)
	if err != nil {
		return nil, fmt.Errorf("launch browser failed: %w", err)
	}

	return browser, nil
}

// canCreateContext 检查是否可以创建新上下文
func (b *PooledBrowser) canCreateContext(maxContexts int) bool {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return len(b.contexts) < maxContexts
}

// getIdleContext 获取空闲上下文
func (b *PooledBrowser) getIdleContext(cookiePath string) *PooledContext {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	for _, ctx := range b.contexts {
		if ctx.cookiePath == cookiePath && time.Since(ctx.lastUsed) > 30*time.Second {
			ctx.lastUsed = time.Now()
			b.inUse++
			return ctx
		}
	}
	return nil
}

// createContext 创建浏览器上下文
func (b *PooledBrowser) createContext(cookiePath string, options *ContextOptions) (*PooledContext, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	contextOptions := playwright.BrowserNewContextOptions{
		Locale:           playwright.String(options.Locale),
		TimezoneId:       playwright.String(options.TimezoneId),
		Permissions:      []string{"geolocation"},
		ColorScheme:      playwright.ColorSchemeLight,
		ExtraHttpHeaders: options.ExtraHeaders,
	}

	if options.UserAgent != "" {
		contextOptions.UserAgent = playwright.String(options.UserAgent)
	}
	if options.Geolocation != nil {
		contextOptions.Geolocation = options.Geolocation
	}

	// 加载已保存的登录状态
	if _, err := os.Stat(cookiePath); err == nil {
		contextOptions.StorageStatePath = playwright.String(cookiePath)
	}

	context, err := b.browser.NewContext(contextOptions)
	if err != nil {
		return nil, fmt.Errorf("create context failed: %w", err)
	}

	// 注入反检测脚本
	if err := injectStealthScript(context); err != nil {
		return nil, fmt.Errorf("inject stealth script failed: %w", err)
	}

	ctx := &PooledContext{
		context:    context,
		cookiePath: cookiePath,
		createdAt:  time.Now(),
		lastUsed:   time.Now(),
		parent:     b,
	}

	b.contexts = append(b.contexts, ctx)
	b.inUse++

	return ctx, nil
}

// SetPlatform 设置日志来源标识
func (c *PooledContext) SetPlatform(platform string) {
	c.platform = platform
}

// Release 释放上下文
func (c *PooledContext) Release() error {
	c.parent.mutex.Lock()
	defer c.parent.mutex.Unlock()

	platform := c.platform
	if platform == "" {
		platform = "browser"
	}

	// 页面可能被用户手动关掉，此时只做清理
	if c.IsPageClosed() {
		utils.Info(fmt.Sprintf("[-] [%s] 浏览器被用户关闭，执行清理...", platform))

		if c.cookiePath != "" {
			if err := c.SaveCookiesTo(c.cookiePath); err != nil {
				utils.Warn(fmt.Sprintf("[-] [%s] 保存Cookie失败（页面已关闭）: %v", platform, err))
			} else {
				utils.Info(fmt.Sprintf("[-] [%s] Cookie已保存", platform))
			}
		}

		if err := c.context.Close(); err != nil {
			utils.Warn(fmt.Sprintf("[-] [%s] 关闭上下文失败: %v", platform, err))
		}

		c.removeFromParent()
		c.parent.inUse--

		return fmt.Errorf("browser was closed by user")
	}

	// 正常释放流程
	utils.Info(fmt.Sprintf("[-] [%s] 释放浏览器上下文...", platform))

	if err := c.SaveCookies(); err != nil {
		utils.Warn(fmt.Sprintf("[-] [%s] 保存Cookie失败: %v", platform, err))
	} else {
		utils.Info(fmt.Sprintf("[-] [%s] Cookie已保存", platform))
	}

	if c.page != nil {
		if err := c.page.Close(); err != nil {
			utils.Warn(fmt.Sprintf("[-] [%s] 关闭页面失败: %v", platform, err))
		}
		c.page = nil
	}

	c.parent.inUse--
	c.lastUsed = time.Now()

	utils.Info(fmt.Sprintf("[-] [%s] 浏览器上下文已释放", platform))

	return nil
}

// removeFromParent 从父浏览器中移除上下文
func (c *PooledContext) removeFromParent() {
	for i, ctx := range c.parent.contexts {
		if ctx == c {
			c.parent.contexts = append(c.parent.contexts[:i], c.parent.contexts[i+1:]...)
			break
		}
	}
}

// SaveCookies 把当前登录状态写回创建时的凭证文件
func (c *PooledContext) SaveCookies() error {
	if c.cookiePath == "" {
		return fmt.Errorf("cookie path is empty")
	}
	return c.SaveCookiesTo(c.cookiePath)
}

// SaveCookiesTo 保存登录状态到指定路径
func (c *PooledContext) SaveCookiesTo(cookiePath string) error {
	data, err := c.ExportStorageState()
	if err != nil {
		return err
	}

	dir := filepath.Dir(cookiePath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create cookie directory failed: %w", err)
		}
	}

	return os.WriteFile(cookiePath, data, 0644)
}

// ExportStorageState 导出当前上下文的存储状态（cookie等）为JSON
func (c *PooledContext) ExportStorageState() ([]byte, error) {
	storage, err := c.context.StorageState()
	if err != nil {
		return nil, err
	}
	return json.Marshal(storage)
}

// GetPage 获取或创建页面
func (c *PooledContext) GetPage() (playwright.Page, error) {
	if c.page != nil {
		return c.page, nil
	}

	page, err := c.context.NewPage()
	if err != nil {
		return nil, err
	}

	page.SetDefaultTimeout(30000)
	page.SetDefaultNavigationTimeout(30000)

	page.On("close", func() {
		utils.Info(fmt.Sprintf("[-] [%s] 浏览器页面被关闭（用户操作或系统）", c.platform))
		c.page = nil
	})

	c.page = page
	return page, nil
}

// WaitForPageLoad 等待页面完全加载
func (c *PooledContext) WaitForPageLoad() error {
	if c.page == nil {
		return fmt.Errorf("page not created")
	}
	return c.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State: playwright.LoadStateNetworkidle,
	})
}

// IsPageClosed 检查页面是否已关闭
func (c *PooledContext) IsPageClosed() bool {
	if c.page == nil {
		return true
	}

	// 连续3次探测失败才判定关闭，避免瞬时抖动误判
	maxRetries := 3
	retryDelay := 500 * time.Millisecond

	for i := 0; i < maxRetries; i++ {
		if c.checkPageAlive() {
			return false
		}
		if i < maxRetries-1 {
			time.Sleep(retryDelay)
		}
	}

	return true
}

// checkPageAlive 检查页面是否存活（单次检测）
func (c *PooledContext) checkPageAlive() bool {
	if _, err := c.page.Evaluate("1"); err != nil {
		return false
	}
	if _, err := c.page.Evaluate(`window.location.href`); err != nil {
		return false
	}
	if _, err := c.page.Evaluate(`document.title`); err != nil {
		return false
	}
	return true
}

// Close 关闭上下文（强制关闭）
func (c *PooledContext) Close() error {
	if c.page != nil {
		if err := c.page.Close(); err != nil {
			utils.Warn(fmt.Sprintf("[-] [%s] 关闭页面失败: %v", c.platform, err))
		}
		c.page = nil
	}

	if err := c.context.Close(); err != nil {
		utils.Warn(fmt.Sprintf("[-] [%s] 关闭上下文失败: %v", c.platform, err))
		return err
	}

	return nil
}

// ClosePage 关闭页面（发布成功后调用）
func (c *PooledContext) ClosePage() error {
	if c.page != nil {
		if err := c.page.Close(); err != nil {
			utils.Warn(fmt.Sprintf("[-] [%s] 关闭页面失败: %v", c.platform, err))
			return err
		}
		c.page = nil
	}
	return nil
}

// ==================== Cookie检测方法 ====================

// WaitForLoginCookies 等待登录Cookie出现
// 循环检测：「全量获取→映射判空→全量满足即返回」
func (c *PooledContext) WaitForLoginCookies(config PlatformCookieConfig) error {
	if c.page == nil {
		return fmt.Errorf("page not created")
	}

	checker := NewCookieChecker()
	return checker.WaitForLoginCookies(context.Background(), c.page, config)
}

// ValidateLoginCookies 验证当前Cookie是否有效
func (c *PooledContext) ValidateLoginCookies(config PlatformCookieConfig) (bool, error) {
	if c.page == nil {
		return false, fmt.Errorf("page not created")
	}

	checker := NewCookieChecker()
	return checker.ValidateLoginCookies(c.page, config)
}

// ==================== 反爬检测方法 ====================

// DetectCaptcha 检测是否出现验证码/滑块
func (c *PooledContext) DetectCaptcha() (bool, string, error) {
	if c.page == nil {
		return false, "", fmt.Errorf("page not created")
	}

	captchaSelectors := []struct {
		selector string
		type_    string
	}{
		{".captcha", "验证码"},
		{"[class*='captcha']", "验证码"},
		{"[class*='slider']", "滑块验证"},
		{"[class*='verify']", "验证"},
		{".geetest", "极验验证"},
		{"[class*='geetest']", "极验验证"},
		{"iframe[src*='captcha']", "验证码iframe"},
		{"iframe[src*='verify']", "验证iframe"},
		{"text=请完成验证", "文字验证"},
		{"text=拖动滑块", "滑块验证"},
		{"text=点击验证", "点击验证"},
	}

	for _, item := range captchaSelectors {
		count, err := c.page.Locator(item.selector).Count()
		if err == nil && count > 0 {
			visible, _ := c.page.Locator(item.selector).IsVisible()
			if visible {
				utils.Warn(fmt.Sprintf("[-] 检测到%s", item.type_))
				return true, item.type_, nil
			}
		}
	}

	verificationTexts := []string{
		"请完成安全验证",
		"请进行验证",
		"验证失败",
		"请点击",
		"请拖动",
	}

	for _, text := range verificationTexts {
		count, _ := c.page.GetByText(text).Count()
		if count > 0 {
			return true, "验证提示", nil
		}
	}

	return false, "", nil
}

// DetectAntiBot 检测反爬虫标记
func (c *PooledContext) DetectAntiBot() (bool, string, error) {
	if c.page == nil {
		return false, "", fmt.Errorf("page not created")
	}

	antiBotIndicators := []struct {
		selector string
		message  string
	}{
		{"text=访问过于频繁", "访问频繁"},
		{"text=操作过于频繁", "操作频繁"},
		{"text=请稍后再试", "限流提示"},
		{"text=系统繁忙", "系统繁忙"},
		{"text=网络异常", "网络异常"},
		{"text=账号异常", "账号异常"},
		{"text=登录异常", "登录异常"},
		{"text=自动程序", "自动程序检测"},
		{"text=机器人", "机器人检测"},
		{"[class*='ban']", "封禁提示"},
		{"[class*='block']", "拦截提示"},
	}

	for _, item := range antiBotIndicators {
		count, err := c.page.Locator(item.selector).Count()
		if err == nil && count > 0 {
			visible, _ := c.page.Locator(item.selector).IsVisible()
			if visible {
				utils.Warn(fmt.Sprintf("[-] 检测到反爬标记: %s", item.message))
				return true, item.message, nil
			}
		}
	}

	return false, "", nil
}

// ==================== 人类行为模拟方法 ====================

// HumanLikeDelay 模拟人类操作的随机延迟
func (c *PooledContext) HumanLikeDelay(baseDelay time.Duration) {
	variance := float64(baseDelay) * 0.3
	delay := baseDelay + time.Duration(rand.Float64()*variance*2-variance)
	time.Sleep(delay)
}

// HumanLikeTyping 模拟人类输入（带随机延迟）
func (c *PooledContext) HumanLikeTyping(text string) error {
	if c.page == nil {
		return fmt.Errorf("page not created")
	}

	for _, char := range text {
		if err := c.page.Keyboard().Type(string(char)); err != nil {
			return err
		}
		time.Sleep(time.Duration(50+rand.Intn(100)) * time.Millisecond)
	}
	return nil
}

// SimulateHumanBehavior 模拟人类浏览行为
func (c *PooledContext) SimulateHumanBehavior() error {
	if c.page == nil {
		return fmt.Errorf("page not created")
	}

	scrollCount := 2 + rand.Intn(3)
	for i := 0; i < scrollCount; i++ {
		scrollY := rand.Intn(300) + 100
		_, err := c.page.Evaluate(fmt.Sprintf("window.scrollBy(0, %d)", scrollY))
		if err != nil {
			return err
		}
		time.Sleep(time.Duration(500+rand.Intn(500)) * time.Millisecond)
	}

	err := c.page.Mouse().Move(float64(rand.Intn(500)+100), float64(rand.Intn(300)+100))
	if err != nil {
		return err
	}

	return nil
}

// SafeGoto 安全导航（带反爬检测）
func (c *PooledContext) SafeGoto(url string, options ...playwright.PageGotoOptions) error {
	if c.page == nil {
		return fmt.Errorf("page not created")
	}

	c.HumanLikeDelay(500 * time.Millisecond)

	_, err := c.page.Goto(url, options...)
	if err != nil {
		return err
	}

	if err := c.SimulateHumanBehavior(); err != nil {
		utils.Warn(fmt.Sprintf("[-] 模拟人类行为失败: %v", err))
	}

	if detected, captchaType, _ := c.DetectCaptcha(); detected {
		return fmt.Errorf("检测到%s，需要人工处理", captchaType)
	}

	if detected, message, _ := c.DetectAntiBot(); detected {
		return fmt.Errorf("检测到反爬: %s", message)
	}

	return nil
}

// findLocalChrome 查找本地 Chrome
func findLocalChrome() string {
	var paths []string
	switch runtime.GOOS {
	case "windows":
		paths = []string{
			`C:\Program Files\Google\Chrome\Application\chrome.exe`,
			`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
			os.Getenv("LOCALAPPDATA") + `\Google\Chrome\Application\chrome.exe`,
			os.Getenv("PROGRAMFILES") + `\Google\Chrome\Application\chrome.exe`,
			os.Getenv("PROGRAMFILES(X86)") + `\Google\Chrome\Application\chrome.exe`,
		}
	case "darwin":
		paths = []string{
			"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
		}
	default:
		paths = []string{
			"/usr/bin/google-chrome",
			"/usr/bin/google-chrome-stable",
			"/usr/bin/chromium",
			"/usr/bin/chromium-browser",
		}
	}

	for _, path := range paths {
		if path != "" {
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}
